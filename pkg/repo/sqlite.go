package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
)

// Store is the SQLite-backed implementation of UserStore, ChatStore, and
// MessageStore.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("repo: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("repo: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: migrate: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory database, used by tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("repo: open memory: %w", err)
	}
	// Each pool connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    file_url   TEXT NOT NULL DEFAULT '',
    file_name  TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, created_at);

CREATE TABLE IF NOT EXISTS messages (
    id         TEXT PRIMARY KEY,
    chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    role       TEXT NOT NULL CHECK(role IN ('user','assistant')),
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at);
`

// timeLayout is RFC 3339 with a fixed-width fraction so that string order in
// ORDER BY matches time order. time.RFC3339Nano trims trailing zeros, which
// would sort whole seconds after fractional ones.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- UserStore ---

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(timeLayout))
	if isUniqueViolation(err) {
		return fmt.Errorf("repo: user %s: %w", u.Email, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("repo: create user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)

	var u domain.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("repo: user by email: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	return u, nil
}

// --- ChatStore ---

func (s *Store) CreateChat(ctx context.Context, c domain.Chat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, title, file_url, file_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.FileURL, c.FileName, c.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("repo: create chat: %w", err)
	}
	return nil
}

func (s *Store) ChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, file_url, file_name, created_at
		 FROM chats WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repo: chats by user: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *Store) ChatByID(ctx context.Context, chatID, userID string) (domain.Chat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, file_url, file_name, created_at
		 FROM chats WHERE id = ? AND user_id = ?`, chatID, userID)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chat{}, ErrNotFound
	}
	return c, err
}

func (s *Store) OwnerOf(ctx context.Context, chatID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM chats WHERE id = ?`, chatID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("repo: owner of chat: %w", err)
	}
	return userID, nil
}

func (s *Store) UpdateTitle(ctx context.Context, chatID, userID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ? WHERE id = ? AND user_id = ?`, title, chatID, userID)
	if err != nil {
		return fmt.Errorf("repo: update title: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *Store) UpdateFile(ctx context.Context, chatID, fileURL, fileName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET file_url = ?, file_name = ? WHERE id = ?`, fileURL, fileName, chatID)
	if err != nil {
		return fmt.Errorf("repo: update file: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *Store) DeleteChat(ctx context.Context, chatID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chats WHERE id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("repo: delete chat: %w", err)
	}
	return affectedOrNotFound(res)
}

// --- MessageStore ---

func (s *Store) CreateMessage(ctx context.Context, m domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.Role, m.Content, m.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("repo: create message: %w", err)
	}
	return nil
}

func (s *Store) MessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, chat_id, role, content, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at ASC`, chatID)
}

func (s *Store) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	// Take the newest rows, then flip back to ascending for context building.
	msgs, err := s.queryMessages(ctx,
		`SELECT id, chat_id, role, content, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) DeleteMessagesByChat(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("repo: delete messages: %w", err)
	}
	return nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repo: query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var created string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("repo: scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(timeLayout, created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (domain.Chat, error) {
	var c domain.Chat
	var created string
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.FileURL, &c.FileName, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chat{}, err
		}
		return domain.Chat{}, fmt.Errorf("repo: scan chat: %w", err)
	}
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	return c, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
