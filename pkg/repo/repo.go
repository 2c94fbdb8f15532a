// Package repo defines the relational store consumed by the pipelines and
// handlers, plus its SQLite implementation. The pipelines only depend on the
// interfaces here so tests can substitute doubles.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

// ErrNotFound is returned when a lookup matches no row. It wraps
// domain.ErrNotFound so callers outside this package can match it.
var ErrNotFound = fmt.Errorf("repo: %w", domain.ErrNotFound)

// ErrExists is returned when an insert violates a uniqueness constraint.
var ErrExists = errors.New("repo: already exists")

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
}

// ChatStore persists chats. All reads and writes except OwnerOf and
// UpdateFile are scoped by the owning user.
type ChatStore interface {
	CreateChat(ctx context.Context, c domain.Chat) error
	ChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error)
	ChatByID(ctx context.Context, chatID, userID string) (domain.Chat, error)
	OwnerOf(ctx context.Context, chatID string) (string, error)
	UpdateTitle(ctx context.Context, chatID, userID, title string) error
	UpdateFile(ctx context.Context, chatID, fileURL, fileName string) error
	DeleteChat(ctx context.Context, chatID, userID string) error
}

// MessageStore persists conversation turns. Turns are appended, never edited.
type MessageStore interface {
	CreateMessage(ctx context.Context, m domain.Message) error
	MessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error)
	// RecentMessages returns up to limit most-recent turns, ordered by
	// creation time ascending.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	DeleteMessagesByChat(ctx context.Context, chatID string) error
}
