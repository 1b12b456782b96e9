package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
)

type stubObjectStorage struct {
	content []byte
}

func (s *stubObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return nil
}

func (s *stubObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s.content))), nil
}

func (s *stubObjectStorage) GetURL(key string) string { return "http://storage/" + key }

func (s *stubObjectStorage) Delete(ctx context.Context, key string) error { return nil }

func (s *stubObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

type stubFieldSearcher struct {
	calls []SearchRequest
	hits  []SearchHit
}

func (s *stubFieldSearcher) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResponse, error) {
	s.calls = append(s.calls, req)
	return &SearchResponse{Query: req.Query, Results: s.hits}, nil
}

type stubCompletionProvider struct {
	contexts []string
	prompts  []string
}

func (s *stubCompletionProvider) CompleteField(ctx context.Context, prompt, label, contextBlock string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.contexts = append(s.contexts, contextBlock)
	return "completed", nil
}

func fillTestService(search *stubFieldSearcher, llm *stubCompletionProvider) *TemplateService {
	log := logger.New(&logger.Config{Level: "error", Format: "json"})
	return NewTemplateService(nil, &stubObjectStorage{content: []byte("not a pdf")}, llm, search, log, nil)
}

func fillTestTemplate() *domain.PdfTemplate {
	return &domain.PdfTemplate{
		ID:         "tmpl-1",
		UserID:     "user-1",
		Name:       "Invoice",
		StorageKey: "templates/user-1/tmpl-1.pdf",
		FieldMappings: domain.FieldMappings{
			"summary": {Type: domain.FieldTypeText, Label: "Summary"},
			"title":   {Type: domain.FieldTypeText, Label: "Title"},
		},
		LLMPrompts: domain.PromptMap{
			"summary": "Summarize the engagement",
			"title":   "State the document title",
		},
	}
}

func TestFillConsultsSearchForContext(t *testing.T) {
	search := &stubFieldSearcher{hits: []SearchHit{{Content: "Acme engagement covers Q3 audit work."}}}
	llm := &stubCompletionProvider{}
	svc := fillTestService(search, llm)
	log := svc.logger

	// The stub template bytes are not a valid PDF, so the fill itself fails
	// after field resolution. The retrieval and completion steps run first.
	_, err := svc.fill(context.Background(), fillTestTemplate(), FillRequest{
		FormData:    map[string]string{"title": "Q3 Audit"},
		SearchQuery: "audit engagement",
		UseAI:       true,
	}, log)
	if err == nil {
		t.Fatal("expected fill to fail on the stub bytes")
	}

	if len(search.calls) != 1 {
		t.Fatalf("search calls = %d, want 1", len(search.calls))
	}
	if got := search.calls[0]; got.Query != "audit engagement" || got.TopK != fillSearchTopK {
		t.Errorf("search request = %+v", got)
	}

	// Only the field without form data gets a completion.
	if len(llm.contexts) != 1 {
		t.Fatalf("completions = %d, want 1", len(llm.contexts))
	}
	if llm.prompts[0] != "Summarize the engagement" {
		t.Errorf("prompt = %q", llm.prompts[0])
	}
	ctxBlock := llm.contexts[0]
	if !strings.Contains(ctxBlock, "Acme engagement covers Q3 audit work.") {
		t.Errorf("context missing retrieved chunk:\n%s", ctxBlock)
	}
	if !strings.Contains(ctxBlock, "title: Q3 Audit") {
		t.Errorf("context missing form data:\n%s", ctxBlock)
	}
}

func TestFillSkipsSearchWithoutAI(t *testing.T) {
	cases := []struct {
		name string
		req  FillRequest
	}{
		{"ai disabled", FillRequest{SearchQuery: "audit", UseAI: false}},
		{"blank query", FillRequest{SearchQuery: "   ", UseAI: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			search := &stubFieldSearcher{}
			llm := &stubCompletionProvider{}
			svc := fillTestService(search, llm)

			_, _ = svc.fill(context.Background(), fillTestTemplate(), tc.req, svc.logger)

			if len(search.calls) != 0 {
				t.Errorf("search calls = %d, want 0", len(search.calls))
			}
			if len(llm.contexts) != 0 {
				t.Errorf("completions = %d, want 0", len(llm.contexts))
			}
		})
	}
}
