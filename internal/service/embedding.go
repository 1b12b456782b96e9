package service

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// EmbeddingProvider generates embeddings for text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchPolicy controls how embedding requests are grouped and paced.
type BatchPolicy struct {
	// BatchSize is the number of concurrent requests per batch.
	BatchSize int
	// Delay is the pause between consecutive batches.
	Delay time.Duration
	// Sleep is the wait function; overridable in tests. Defaults to a
	// context-aware timer when nil.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p BatchPolicy) batchSize() int {
	if p.BatchSize <= 0 {
		return 10
	}
	return p.BatchSize
}

func (p BatchPolicy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// EmbeddingService generates embeddings through the OpenAI API.
type EmbeddingService struct {
	policy BatchPolicy

	// embedOne performs a single embedding request; replaceable in tests.
	embedOne func(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingConfig holds configuration for embedding generation.
type EmbeddingConfig struct {
	APIKey string
	Model  string
	Policy BatchPolicy
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.AdaEmbeddingV2
	}
	client := openai.NewClient(cfg.APIKey)

	return &EmbeddingService{
		policy: cfg.Policy,
		embedOne: func(ctx context.Context, text string) ([]float32, error) {
			resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Model: model,
				Input: []string{text},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create embedding: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("no embedding returned")
			}
			return resp.Data[0].Embedding, nil
		},
	}
}

// Embed generates an embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text)
}

// EmbedBatch generates embeddings for the texts in order. Requests run
// concurrently within each batch; batches are paced by the policy delay. Any
// failure aborts the whole run so no partial vector set is produced.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))
	batchSize := s.policy.batchSize()

	for start := 0; start < len(texts); start += batchSize {
		if start > 0 {
			if err := s.policy.sleep(ctx, s.policy.Delay); err != nil {
				return nil, err
			}
		}

		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				vec, err := s.embedOne(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("chunk %d: %w", i, err)
				}
				embeddings[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return embeddings, nil
}
