package ingest

import (
	"fmt"
	"strings"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

const (
	// DefaultChunkSize is the window size in words.
	DefaultChunkSize = 500
	// DefaultOverlap is the number of words shared between adjacent windows.
	DefaultOverlap = 50
)

// ChunkText splits text into overlapping word windows. The window advances
// by size-overlap words each step, so every chunk after the first repeats the
// previous chunk's last overlap words. The final window may be shorter than
// size. Deterministic: ordinal equals position in the returned slice.
func ChunkText(text string, size, overlap int) ([]domain.Chunk, error) {
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("ingest: chunk size %d overlap %d: %w", size, overlap, domain.ErrConfiguration)
	}

	words := strings.Fields(text)
	step := size - overlap

	var chunks []domain.Chunk
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, domain.Chunk{
			Text:    strings.Join(words[start:end], " "),
			Ordinal: len(chunks),
		})
	}
	return chunks, nil
}
