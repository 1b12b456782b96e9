package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vector
	}
	return out, s.err
}

type stubSearcher struct {
	results []repository.VectorSearchResult
	err     error
	gotTopK int
	gotUser string
}

func (s *stubSearcher) Search(ctx context.Context, vector []float32, topK int, userID string) ([]repository.VectorSearchResult, error) {
	s.gotTopK = topK
	s.gotUser = userID
	return s.results, s.err
}

type stubRecorder struct {
	mu      sync.Mutex
	records []*domain.SearchQuery
	err     error
	done    chan struct{}
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{done: make(chan struct{}, 1)}
}

func (s *stubRecorder) Create(ctx context.Context, query *domain.SearchQuery) error {
	s.mu.Lock()
	s.records = append(s.records, query)
	s.mu.Unlock()
	select {
	case s.done <- struct{}{}:
	default:
	}
	return s.err
}

func (s *stubRecorder) wait(t *testing.T) *domain.SearchQuery {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for query record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[len(s.records)-1]
}

func hit(docID string, score float32) repository.VectorSearchResult {
	return repository.VectorSearchResult{
		ID:    docID,
		Score: score,
		Payload: &repository.ChunkPayload{
			DocumentID:   docID,
			DocumentName: "doc " + docID,
			Content:      "content",
		},
	}
}

func newTestSearchService(searcher *stubSearcher, recorder *stubRecorder) *SearchService {
	log := logger.New(&logger.Config{Level: "error", Format: "json"})
	return &SearchService{
		qdrant:         searcher,
		embedding:      &stubEmbedder{vector: []float32{0.1}},
		queries:        recorder,
		logger:         log,
		defaultTopK:    10,
		scoreThreshold: 0.7,
	}
}

func TestSearchFiltersBelowThreshold(t *testing.T) {
	searcher := &stubSearcher{
		results: []repository.VectorSearchResult{
			hit("a", 0.95),
			hit("b", 0.71),
			hit("c", 0.69),
			hit("d", 0.2),
		},
	}
	recorder := newStubRecorder()
	svc := newTestSearchService(searcher, recorder)

	resp, err := svc.Search(context.Background(), "user-1", SearchRequest{Query: "hello"})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].DocumentID != "a" || resp.Results[1].DocumentID != "b" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if searcher.gotTopK != 10 {
		t.Errorf("topK = %d, want default 10", searcher.gotTopK)
	}
	if searcher.gotUser != "user-1" {
		t.Errorf("user filter = %q", searcher.gotUser)
	}
}

func TestSearchCustomThresholdAndTopK(t *testing.T) {
	searcher := &stubSearcher{results: []repository.VectorSearchResult{hit("a", 0.5)}}
	recorder := newStubRecorder()
	svc := newTestSearchService(searcher, recorder)

	var threshold float32 = 0.4
	resp, err := svc.Search(context.Background(), "user-1", SearchRequest{
		Query:          "hello",
		TopK:           3,
		ScoreThreshold: &threshold,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
	if searcher.gotTopK != 3 {
		t.Errorf("topK = %d, want 3", searcher.gotTopK)
	}
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	svc := newTestSearchService(&stubSearcher{}, newStubRecorder())

	for _, q := range []string{"", "   "} {
		if _, err := svc.Search(context.Background(), "user-1", SearchRequest{Query: q}); err == nil {
			t.Errorf("Search(%q) expected error", q)
		}
	}
}

func TestSearchRecordsHistory(t *testing.T) {
	searcher := &stubSearcher{
		results: []repository.VectorSearchResult{
			hit("a", 0.8),
			hit("a", 0.75),
			hit("b", 0.9),
		},
	}
	recorder := newStubRecorder()
	svc := newTestSearchService(searcher, recorder)

	if _, err := svc.Search(context.Background(), "user-1", SearchRequest{Query: "hello"}); err != nil {
		t.Fatal(err)
	}

	record := recorder.wait(t)
	if record.UserID != "user-1" || record.Query != "hello" {
		t.Errorf("record = %+v", record)
	}
	if record.ResultCount != 3 {
		t.Errorf("result count = %d, want 3", record.ResultCount)
	}
	if record.MaxSimilarityScore == nil || *record.MaxSimilarityScore != 0.9 {
		t.Errorf("max score = %v, want 0.9", record.MaxSimilarityScore)
	}
}

func TestSearchRecorderFailureDoesNotFailSearch(t *testing.T) {
	recorder := newStubRecorder()
	recorder.err = errors.New("db down")
	svc := newTestSearchService(&stubSearcher{results: []repository.VectorSearchResult{hit("a", 0.8)}}, recorder)

	resp, err := svc.Search(context.Background(), "user-1", SearchRequest{Query: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("got %d results, want 1", len(resp.Results))
	}
	recorder.wait(t)
}

func TestSearchVectorErrorPropagates(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("qdrant unavailable")}
	svc := newTestSearchService(searcher, newStubRecorder())

	if _, err := svc.Search(context.Background(), "user-1", SearchRequest{Query: "hello"}); err == nil {
		t.Fatal("expected error")
	}
}
