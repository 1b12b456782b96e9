package service

import (
	"fmt"
	"strings"
)

// Chunk is one window of a document's text.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
}

// Chunker splits extracted text into overlapping word windows sized for
// embedding requests.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker.
// Parameters:
//   - size: window size in words, must be positive.
//   - overlap: words shared between consecutive windows, must be
//     non-negative and strictly smaller than size.
// Returns:
//   - *Chunker: configured chunker.
//   - error: non-nil if the parameters cannot make progress.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks text into overlapping chunks. Whitespace runs collapse to
// single spaces; empty or whitespace-only input yields no chunks. Window
// starts advance strictly by size-overlap until they pass the end of the
// text, so a 2500-word text at 1000/200 yields windows starting at 0, 800,
// 1600, and 2400. Chunk indices are contiguous from zero and the token count
// is the window's word count.
func (c *Chunker) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, (len(words)+step-1)/step)

	for start, index := 0, 0; start < len(words); start, index = start+step, index+1 {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		window := words[start:end]
		chunks = append(chunks, Chunk{
			Content:    strings.Join(window, " "),
			Index:      index,
			TokenCount: len(window),
		})
	}

	return chunks
}
