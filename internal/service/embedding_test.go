package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

// countingEmbedder returns a one-element vector encoding the text's suffix
// and records call order.
func countingEmbedder(mu *sync.Mutex, calls *[]string) func(context.Context, string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		mu.Lock()
		*calls = append(*calls, text)
		mu.Unlock()

		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, err
		}
		return []float32{float32(n)}, nil
	}
}

func TestEmbedBatchOrderPreserved(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	svc := &EmbeddingService{
		policy:   BatchPolicy{BatchSize: 3},
		embedOne: countingEmbedder(&mu, &calls),
	}

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%d", i)
	}

	got, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(got), len(texts))
	}
	for i, vec := range got {
		if len(vec) != 1 || int(vec[0]) != i {
			t.Errorf("embedding %d = %v, want [%d]", i, vec, i)
		}
	}
	if len(calls) != len(texts) {
		t.Errorf("made %d requests, want %d", len(calls), len(texts))
	}
}

func TestEmbedBatchDelayBetweenBatches(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	var sleeps []time.Duration

	svc := &EmbeddingService{
		policy: BatchPolicy{
			BatchSize: 4,
			Delay:     time.Second,
			Sleep: func(ctx context.Context, d time.Duration) error {
				sleeps = append(sleeps, d)
				return nil
			},
		},
		embedOne: countingEmbedder(&mu, &calls),
	}

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%d", i)
	}

	if _, err := svc.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatal(err)
	}

	// 3 batches of [4,4,2]: a pause before the 2nd and 3rd only.
	if len(sleeps) != 2 {
		t.Fatalf("got %d sleeps, want 2", len(sleeps))
	}
	for _, d := range sleeps {
		if d != time.Second {
			t.Errorf("sleep = %v, want 1s", d)
		}
	}
}

func TestEmbedBatchAbortsOnFailure(t *testing.T) {
	boom := errors.New("rate limited")

	svc := &EmbeddingService{
		policy: BatchPolicy{BatchSize: 2},
		embedOne: func(ctx context.Context, text string) ([]float32, error) {
			if text == "2" {
				return nil, boom
			}
			return []float32{1}, nil
		},
	}

	_, err := svc.EmbedBatch(context.Background(), []string{"0", "1", "2", "3", "4"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	svc := &EmbeddingService{
		policy: BatchPolicy{},
		embedOne: func(ctx context.Context, text string) ([]float32, error) {
			t.Fatal("embedOne should not be called")
			return nil, nil
		},
	}

	got, err := svc.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d embeddings, want 0", len(got))
	}
}
