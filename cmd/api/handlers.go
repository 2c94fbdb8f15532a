package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
	"github.com/tyagiharsh607/chat-with-pdf/engine/ingest"
	"github.com/tyagiharsh607/chat-with-pdf/engine/rag"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/auth"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/metrics"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/mid"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/repo"
)

// maxUploadBytes bounds multipart upload size (32 MiB).
const maxUploadBytes = 32 << 20

type server struct {
	store  *repo.Store
	tokens *auth.Tokens
	ingest *ingest.Service
	rag    *rag.Generator
	logger *slog.Logger

	uploads  *metrics.Counter
	answers  *metrics.Counter
	answerMs *metrics.Histogram
}

func newServer(store *repo.Store, tokens *auth.Tokens, ing *ingest.Service, gen *rag.Generator, reg *metrics.Registry, logger *slog.Logger) *server {
	return &server{
		store:    store,
		tokens:   tokens,
		ingest:   ing,
		rag:      gen,
		logger:   logger,
		uploads:  reg.Counter("ingest_uploads_total", "Completed document ingestions."),
		answers:  reg.Counter("rag_answers_total", "Generated assistant answers."),
		answerMs: reg.Histogram("rag_answer_seconds", "Answer latency.", nil),
	}
}

// routes builds the API mux. Auth and health are open; everything else
// requires a bearer token.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	authed := mid.RequireAuth(s.tokens)
	mux.Handle("POST /api/chats", authed(http.HandlerFunc(s.handleCreateChat)))
	mux.Handle("GET /api/chats", authed(http.HandlerFunc(s.handleListChats)))
	mux.Handle("GET /api/chats/{id}", authed(http.HandlerFunc(s.handleGetChat)))
	mux.Handle("PATCH /api/chats/{id}", authed(http.HandlerFunc(s.handleRenameChat)))
	mux.Handle("DELETE /api/chats/{id}", authed(http.HandlerFunc(s.handleDeleteChat)))
	mux.Handle("GET /api/chats/{id}/messages", authed(http.HandlerFunc(s.handleListMessages)))
	mux.Handle("POST /api/uploads", authed(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /api/messages", authed(http.HandlerFunc(s.handlePostMessage)))
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("signup hash failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repo.ErrExists) {
			errorJSON(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("signup create failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("signup token failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("login token failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// --- chats ---

func (s *server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}

	chat := domain.Chat{
		ID:        uuid.NewString(),
		UserID:    mid.UserID(r.Context()),
		Title:     req.Title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateChat(r.Context(), chat); err != nil {
		s.logger.Error("create chat failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (s *server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ChatsByUser(r.Context(), mid.UserID(r.Context()))
	if err != nil {
		s.logger.Error("list chats failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.store.ChatByID(r.Context(), r.PathValue("id"), mid.UserID(r.Context()))
	if err != nil {
		errorJSON(w, http.StatusNotFound, "chat not found")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		errorJSON(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.store.UpdateTitle(r.Context(), r.PathValue("id"), mid.UserID(r.Context()), req.Title); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "chat not found")
			return
		}
		s.logger.Error("rename chat failed", "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// handleDeleteChat removes the chat row, its messages, its blob, and its
// index points. External cleanup runs first; a failure there leaves the chat
// intact so the delete can be retried.
func (s *server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	userID := mid.UserID(r.Context())

	chat, err := s.store.ChatByID(r.Context(), chatID, userID)
	if err != nil {
		errorJSON(w, http.StatusNotFound, "chat not found")
		return
	}

	if err := s.ingest.Purge(r.Context(), chatID, chat.FileURL); err != nil {
		s.logger.Error("chat purge failed", "chat_id", chatID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "could not remove chat artifacts")
		return
	}
	if err := s.store.DeleteMessagesByChat(r.Context(), chatID); err != nil {
		s.logger.Error("delete messages failed", "chat_id", chatID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.store.DeleteChat(r.Context(), chatID, userID); err != nil {
		s.logger.Error("delete chat failed", "chat_id", chatID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- uploads ---

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		errorJSON(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "could not read file")
		return
	}

	receipt, err := s.ingest.Ingest(r.Context(), ingest.Request{
		Data:        data,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		ChatID:      chatID,
		OwnerID:     mid.UserID(r.Context()),
	})
	if err != nil {
		status, msg := ingestStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("ingest failed", "chat_id", chatID, "err", err)
		}
		errorJSON(w, status, msg)
		return
	}

	s.uploads.Inc()
	writeJSON(w, http.StatusCreated, receipt)
}

// ingestStatus maps pipeline errors onto HTTP statuses and user messages.
func ingestStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "chat does not belong to you"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "unsupported file type"
	case errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest, "file has no extractable text"
	default:
		return http.StatusInternalServerError, "ingestion failed"
	}
}

// --- messages ---

func (s *server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if _, err := s.store.ChatByID(r.Context(), chatID, mid.UserID(r.Context())); err != nil {
		errorJSON(w, http.StatusNotFound, "chat not found")
		return
	}
	msgs, err := s.store.MessagesByChat(r.Context(), chatID)
	if err != nil {
		s.logger.Error("list messages failed", "chat_id", chatID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePostMessage answers a question. The reply is generated before either
// turn is persisted, so a generation crash never leaves a user message
// without its answer.
func (s *server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID  string `json:"chat_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || strings.TrimSpace(req.Content) == "" {
		errorJSON(w, http.StatusBadRequest, "chat_id and content are required")
		return
	}

	userID := mid.UserID(r.Context())
	if _, err := s.store.ChatByID(r.Context(), req.ChatID, userID); err != nil {
		errorJSON(w, http.StatusNotFound, "chat not found")
		return
	}

	start := time.Now()
	reply := s.rag.Answer(r.Context(), req.Content, req.ChatID)
	s.answerMs.Since(start)
	s.answers.Inc()

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    req.ChatID,
		Role:      domain.RoleUser,
		Content:   req.Content,
		CreatedAt: now,
	}
	assistantMsg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    req.ChatID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: now.Add(time.Millisecond),
	}
	for _, m := range []domain.Message{userMsg, assistantMsg} {
		if err := s.store.CreateMessage(r.Context(), m); err != nil {
			s.logger.Error("persist message failed", "chat_id", req.ChatID, "err", err)
			errorJSON(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	msgs, err := s.store.MessagesByChat(r.Context(), req.ChatID)
	if err != nil {
		s.logger.Error("list messages failed", "chat_id", req.ChatID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
