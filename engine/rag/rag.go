// Package rag answers user questions over a chat's indexed document. Every
// failure mode resolves to a user-facing fallback string; Answer never
// returns an error.
package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
	"github.com/tyagiharsh607/chat-with-pdf/engine/semantic"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/fn"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/gemini"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Fallback strings returned in place of a generated answer.
const (
	msgSearchUnavailable = "I'm having trouble accessing the document right now. Please try again in a moment."
	msgNoContext         = "I couldn't find relevant information in the uploaded file to answer that."
	msgEmptyResponse     = "[EMPTY_RESPONSE] No valid text returned by Gemini."
	msgRateLimited       = "[RATE_LIMITED] Gemini API quota exceeded. Try again later."
	msgUnprocessable     = "I wasn't able to process that question right now. Please try again."
)

// Embedder turns a batch of texts into one vector per text.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher finds a chat's nearest chunks for a query vector.
type Searcher interface {
	SearchByChat(ctx context.Context, embedding []float32, chatID string, topK int) ([]semantic.Hit, error)
}

// History reads a chat's recent turns, oldest first.
type History interface {
	RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
}

// Generative produces text from a prompt.
type Generative interface {
	Generate(ctx context.Context, prompt string) (gemini.Response, error)
}

// Deps holds the external collaborators for the generator.
type Deps struct {
	Embedder Embedder
	Index    Searcher
	Messages History
	Model    Generative
	TopK     int
	Retry    fn.RetryOpts
	Logger   *slog.Logger
}

// Generator answers questions. Safe for concurrent use.
type Generator struct {
	embed    Embedder
	index    Searcher
	messages History
	model    Generative
	topK     int
	retry    fn.RetryOpts
	logger   *slog.Logger
}

// New creates a Generator.
func New(deps Deps) *Generator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	topK := deps.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	retry := deps.Retry
	if retry.MaxAttempts == 0 {
		retry = fn.DefaultRetry
	}
	return &Generator{
		embed:    deps.Embedder,
		index:    deps.Index,
		messages: deps.Messages,
		model:    deps.Model,
		topK:     topK,
		retry:    retry,
		logger:   log,
	}
}

// Answer produces the assistant's reply for one question in one chat. The
// conversation history is best-effort: a failed fetch degrades to answering
// without it. Retrieval runs under the shared retry budget; an exhausted
// budget or any other dead end resolves to a fallback string.
func (g *Generator) Answer(ctx context.Context, query, chatID string) string {
	log := g.logger.With("chat_id", chatID)

	history := g.recentHistory(ctx, chatID)

	vectors, err := g.embed.Encode(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		log.Warn("answer query embed failed", "err", err)
		return msgUnprocessable
	}

	hits := fn.Retry(ctx, g.retry, func(ctx context.Context) fn.Result[[]semantic.Hit] {
		return fn.FromPair(g.index.SearchByChat(ctx, vectors[0], chatID, g.topK))
	})
	found, err := hits.Unwrap()
	if err != nil {
		log.Error("answer search exhausted retries", "err", err)
		return msgSearchUnavailable
	}

	texts := fn.FilterMap(found, func(h semantic.Hit) (string, bool) {
		return h.Text, h.Text != ""
	})

	if len(texts) == 0 {
		if history == "" {
			return msgNoContext
		}
		return g.generate(ctx, historyPrompt(history, query))
	}

	docContext := strings.Join(texts, "\n\n")
	if strings.TrimSpace(history) != "" {
		return g.generate(ctx, combinedPrompt(docContext, history, query))
	}
	return g.generate(ctx, documentPrompt(docContext, query))
}

// recentHistory renders the chat's last turns for prompting. A single turn is
// treated as no history: it is the question currently being answered.
func (g *Generator) recentHistory(ctx context.Context, chatID string) string {
	turns, err := g.messages.RecentMessages(ctx, chatID, 10)
	if err != nil {
		g.logger.Warn("answer history fetch failed, continuing without", "chat_id", chatID, "err", err)
		return ""
	}
	if len(turns) <= 1 {
		return ""
	}
	return renderHistory(turns)
}

func (g *Generator) generate(ctx context.Context, prompt string) string {
	resp, err := g.model.Generate(ctx, prompt)
	var outcome Outcome
	if err != nil {
		outcome = normalizeError(err)
	} else {
		outcome = normalize(resp.Body)
	}

	switch outcome.Kind {
	case KindText:
		return outcome.Text
	case KindRateLimited:
		g.logger.Warn("answer generation rate limited")
		return msgRateLimited
	case KindFailed:
		g.logger.Error("answer generation failed", "err", outcome.Message)
		return "[ERROR] " + outcome.Message
	default:
		g.logger.Warn("answer generation returned no text")
		return msgEmptyResponse
	}
}
