package ingest

import (
	"context"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

// Request is one uploaded file bound to its owning chat and the
// authenticated caller.
type Request struct {
	Data        []byte
	FileName    string
	ContentType string
	ChatID      string
	OwnerID     string
}

// extractedDoc is a request whose bytes have been turned into plain text.
type extractedDoc struct {
	Request
	Text string
}

// chunkedDoc is an extracted document split into embeddable chunks.
type chunkedDoc struct {
	extractedDoc
	Chunks []domain.Chunk
}

// embeddedDoc is a chunked document with one vector per chunk.
type embeddedDoc struct {
	chunkedDoc
	Vectors [][]float32
}

// Receipt reports a fully durable ingestion: file stored, vectors indexed,
// chat record updated.
type Receipt struct {
	FileURL    string `json:"file_url"`
	FileName   string `json:"file_name"`
	ChunkCount int    `json:"chunk_count"`
}

// Alert is an operator notification for states that need manual follow-up.
type Alert struct {
	Reason string `json:"reason"`
	ChatID string `json:"chat_id"`
	Detail string `json:"detail"`
}

// Alerter delivers operator alerts. Implementations must not block the
// pipeline on delivery failure.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// AlertFunc adapts a function to the Alerter interface.
type AlertFunc func(ctx context.Context, a Alert)

// Alert implements Alerter.
func (f AlertFunc) Alert(ctx context.Context, a Alert) { f(ctx, a) }
