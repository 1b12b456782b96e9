package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
)

// SearchConfig holds configuration for the search service.
type SearchConfig struct {
	DefaultTopK    int
	ScoreThreshold float32
}

// SearchRequest is one semantic search invocation.
type SearchRequest struct {
	Query          string
	TopK           int
	ScoreThreshold *float32
}

// SearchHit is one scored chunk returned to the caller.
type SearchHit struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

// SearchResponse carries the hits plus what was actually searched.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// vectorSearcher is the slice of the Qdrant repository the search path needs.
type vectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, userID string) ([]repository.VectorSearchResult, error)
}

// queryRecorder persists search history.
type queryRecorder interface {
	Create(ctx context.Context, query *domain.SearchQuery) error
}

// SearchService answers semantic queries over a user's indexed documents.
type SearchService struct {
	qdrant    vectorSearcher
	embedding EmbeddingProvider
	queries   queryRecorder
	logger    *logger.Logger

	defaultTopK    int
	scoreThreshold float32
}

// NewSearchService creates a new search service.
// Parameters:
//   - qdrantRepo: vector store client.
//   - embedding: embedding provider for query vectors.
//   - queryRepo: repository for search history records.
//   - log: logger instance.
//   - cfg: search configuration settings.
// Returns:
//   - *SearchService: initialized service.
func NewSearchService(
	qdrantRepo *repository.QdrantRepository,
	embedding EmbeddingProvider,
	queryRepo *repository.SearchQueryRepository,
	log *logger.Logger,
	cfg *SearchConfig,
) *SearchService {
	topK := 10
	var threshold float32 = 0.7
	if cfg != nil {
		if cfg.DefaultTopK > 0 {
			topK = cfg.DefaultTopK
		}
		if cfg.ScoreThreshold > 0 {
			threshold = cfg.ScoreThreshold
		}
	}
	return &SearchService{
		qdrant:         qdrantRepo,
		embedding:      embedding,
		queries:        queryRepo,
		logger:         log.WithField("component", "search"),
		defaultTopK:    topK,
		scoreThreshold: threshold,
	}
}

// Search embeds the query, retrieves nearest chunks scoped to the user, and
// drops hits below the score threshold. History is recorded asynchronously
// and never fails the search.
func (s *SearchService) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	threshold := s.scoreThreshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}

	start := time.Now()

	vector, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	raw, err := s.qdrant.Search(ctx, vector, topK, userID)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(raw))
	for _, r := range raw {
		if r.Score < threshold || r.Payload == nil {
			continue
		}
		hits = append(hits, SearchHit{
			DocumentID:   r.Payload.DocumentID,
			DocumentName: r.Payload.DocumentName,
			ChunkIndex:   r.Payload.ChunkIndex,
			Content:      r.Payload.Content,
			Score:        r.Score,
		})
	}

	s.logger.WithFields(logger.Fields{
		"user_id":     userID,
		"count":       len(hits),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("search completed")

	go s.recordQuery(userID, query, hits)

	return &SearchResponse{Query: query, Results: hits}, nil
}

// recordQuery logs the search to history. Failures are logged and dropped.
func (s *SearchService) recordQuery(userID, query string, hits []SearchHit) {
	record := &domain.SearchQuery{
		ID:          uuid.NewString(),
		UserID:      userID,
		Query:       query,
		ResultCount: len(hits),
	}
	if len(hits) > 0 {
		top := hits[0].Score
		for _, h := range hits[1:] {
			if h.Score > top {
				top = h.Score
			}
		}
		record.MaxSimilarityScore = &top

		docs := make([]interface{}, 0, len(hits))
		seen := map[string]bool{}
		for _, h := range hits {
			if seen[h.DocumentID] {
				continue
			}
			seen[h.DocumentID] = true
			docs = append(docs, map[string]interface{}{
				"document_id":   h.DocumentID,
				"document_name": h.DocumentName,
			})
		}
		record.ResultsMetadata = domain.JSONMap{"documents": docs}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.queries.Create(ctx, record); err != nil {
		s.logger.WithField("error", err.Error()).Warn("failed to record search query")
	}
}
