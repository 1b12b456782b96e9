package service

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if got := c.Split(input); len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func TestSplitShortInput(t *testing.T) {
	c, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Split("hello world foo")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "hello world foo" {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if chunks[0].TokenCount != 3 {
		t.Errorf("token count = %d, want 3", chunks[0].TokenCount)
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
}

func TestSplitWindowing(t *testing.T) {
	c, err := NewChunker(10, 3)
	if err != nil {
		t.Fatal(err)
	}

	// 25 words, step 7: windows [0,10) [7,17) [14,24) [21,25)
	chunks := c.Split(words(25))
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	wantCounts := []int{10, 10, 10, 4}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if chunk.TokenCount != wantCounts[i] {
			t.Errorf("chunk %d token count = %d, want %d", i, chunk.TokenCount, wantCounts[i])
		}
	}

	if !strings.HasPrefix(chunks[1].Content, "w7 ") {
		t.Errorf("chunk 1 should start at word 7, got %q", chunks[1].Content[:20])
	}
	if chunks[3].Content != "w21 w22 w23 w24" {
		t.Errorf("final chunk = %q", chunks[3].Content)
	}
}

func TestSplitOverlapSharesWords(t *testing.T) {
	c, err := NewChunker(5, 2)
	if err != nil {
		t.Fatal(err)
	}

	// 8 words, step 3: windows [0,5) [3,8) [6,8)
	chunks := c.Split(words(8))
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	if first[3] != second[0] || first[4] != second[1] {
		t.Errorf("windows do not share the trailing words: %v / %v", first, second)
	}
	if chunks[2].Content != "w6 w7" {
		t.Errorf("final chunk = %q, want %q", chunks[2].Content, "w6 w7")
	}
}

func TestSplitDefaultParameters(t *testing.T) {
	c, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	// 2500 words, step 800: windows start at 0, 800, 1600, 2400.
	chunks := c.Split(words(2500))
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	wantCounts := []int{1000, 1000, 1000, 100}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if chunk.TokenCount != wantCounts[i] {
			t.Errorf("chunk %d token count = %d, want %d", i, chunk.TokenCount, wantCounts[i])
		}
	}

	last := strings.Fields(chunks[3].Content)
	if last[0] != "w2400" || last[len(last)-1] != "w2499" {
		t.Errorf("final chunk spans %s..%s, want w2400..w2499", last[0], last[len(last)-1])
	}
}

func TestSplitCollapsesWhitespace(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Split("a\n\nb\t c   d")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "a b c d" {
		t.Errorf("content = %q, want %q", chunks[0].Content, "a b c d")
	}
}

func TestSplitExactWindowNoEmptyTail(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Split(words(20))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for _, chunk := range chunks {
		if chunk.TokenCount != 10 {
			t.Errorf("chunk %d token count = %d, want 10", chunk.Index, chunk.TokenCount)
		}
	}
}
