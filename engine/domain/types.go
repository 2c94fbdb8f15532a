// Package domain defines the core types and the error taxonomy shared by the
// ingestion and retrieval pipelines.
package domain

import "time"

// EmbeddingDims is the output dimensionality of the embedding model. Every
// collection, upsert, and search assumes vectors of exactly this length.
const EmbeddingDims = 384

// Chunk is a bounded, possibly overlapping window of a document's tokens.
// It exists only within one ingestion run; it is never persisted on its own.
type Chunk struct {
	Text    string
	Ordinal int
}

// User is an account that owns chats.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chat is a conversation scoped to at most one indexed document. FileURL and
// FileName are set only after the document's vectors and blob are durable.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	FileURL   string    `json:"file_url,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Turns are appended, never edited.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
