// Package ingest implements the document ingestion pipeline: authorize,
// extract, chunk, embed, provision, upsert, store, record. Each stage is a
// hard gate on the next; the only automatic rollback is deleting the chat's
// vectors when durable vectors exist without a stored file behind them,
// after a partial batched upsert or a failed blob upload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
	"github.com/tyagiharsh607/chat-with-pdf/engine/extract"
	"github.com/tyagiharsh607/chat-with-pdf/engine/semantic"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/fn"
)

// upsertBatchSize bounds points per Qdrant upsert call.
const upsertBatchSize = 100

// Embedder turns a batch of texts into one vector per text.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex abstracts the Qdrant operations the pipeline needs.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dims int) error
	EnsurePayloadIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []semantic.ChunkRecord) error
	DeleteByChat(ctx context.Context, chatID string) error
}

// BlobStore abstracts the object store.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	// KeyFromURL recovers the storage key from a public URL this store
	// produced. Returns false for foreign URLs.
	KeyFromURL(fileURL string) (string, bool)
}

// ChatRecords is the slice of the relational store the pipeline touches.
type ChatRecords interface {
	OwnerOf(ctx context.Context, chatID string) (string, error)
	UpdateFile(ctx context.Context, chatID, fileURL, fileName string) error
}

// Deps holds the external collaborators for the ingestion pipeline.
type Deps struct {
	Chats    ChatRecords
	Embedder Embedder
	Index    VectorIndex
	Blobs    BlobStore
	Alerts   Alerter // optional
	Retry    fn.RetryOpts
	Logger   *slog.Logger
}

// Service runs ingestions. Safe for concurrent use; each call is an
// independent sequential stage chain.
type Service struct {
	chats  ChatRecords
	embed  Embedder
	index  VectorIndex
	blobs  BlobStore
	alerts Alerter
	retry  fn.RetryOpts
	logger *slog.Logger
}

// New creates an ingestion Service.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	retry := deps.Retry
	if retry.MaxAttempts == 0 {
		retry = fn.DefaultRetry
	}
	return &Service{
		chats:  deps.Chats,
		embed:  deps.Embedder,
		index:  deps.Index,
		blobs:  deps.Blobs,
		alerts: deps.Alerts,
		retry:  retry,
		logger: log,
	}
}

// Ingest runs the full pipeline for one uploaded file. On success all three
// artifacts (blob, vectors, chat record) are durable and consistent; on
// failure no orphaned blob survives. A metadata-update failure leaves valid
// indexed content behind; see stage 8.
func (s *Service) Ingest(ctx context.Context, req Request) (*Receipt, error) {
	log := s.logger.With("chat_id", req.ChatID, "file", req.FileName)
	log.Info("ingest start", "bytes", len(req.Data))

	// Stage 1: the chat must belong to the caller. A missing chat reads
	// the same as a foreign one; a store failure is not a denial.
	owner, err := s.chats.OwnerOf(ctx, req.ChatID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.NewStageError("authorize", domain.ErrForbidden)
	case err != nil:
		return nil, domain.NewStageError("authorize", fmt.Errorf("chat lookup: %w", err))
	case owner != req.OwnerID:
		return nil, domain.NewStageError("authorize", domain.ErrForbidden)
	}

	// Stages 2-4: pure transformation chain, short-circuiting on error.
	front := fn.Then(
		fn.TracedStage("ingest.extract", extractStage),
		fn.Then(
			fn.TracedStage("ingest.chunk", chunkStage),
			fn.TracedStage("ingest.embed", s.embedStage()),
		),
	)
	doc, err := front(ctx, req).Unwrap()
	if err != nil {
		log.Warn("ingest aborted", "err", err)
		return nil, err
	}
	log.Info("ingest embedded", "chunks", len(doc.Chunks))

	// Stage 5: provision collection and payload index. Idempotent, but a
	// failure here is fatal to the run.
	if err := s.index.EnsureCollection(ctx, domain.EmbeddingDims); err != nil {
		return nil, domain.NewStageError("provision", fmt.Errorf("%w: %w", domain.ErrIndexProvisioning, err))
	}
	if err := s.index.EnsurePayloadIndex(ctx); err != nil {
		return nil, domain.NewStageError("provision", fmt.Errorf("%w: %w", domain.ErrIndexProvisioning, err))
	}

	// Stage 6: upsert under the shared retry budget. The blob upload must
	// not run unless this succeeds, or storage could hold a file with no
	// vectors behind it.
	records := make([]semantic.ChunkRecord, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		records[i] = semantic.ChunkRecord{
			ID:        uuid.NewString(),
			Embedding: doc.Vectors[i],
			Text:      chunk.Text,
			ChatID:    req.ChatID,
		}
	}
	committed := 0
	for _, batch := range fn.Batch(records, upsertBatchSize) {
		upsert := fn.Retry(ctx, s.retry, func(ctx context.Context) fn.Result[struct{}] {
			return fn.FromPair(struct{}{}, s.index.Upsert(ctx, batch))
		})
		if _, err := upsert.Unwrap(); err != nil {
			log.Error("ingest upsert exhausted retries", "err", err, "committed_batches", committed)
			// Earlier batches are already durable; without a rollback they
			// would stay searchable for this chat with no file behind them.
			if committed > 0 {
				s.compensate(ctx, req.ChatID, err)
			}
			return nil, domain.NewStageError("upsert", fmt.Errorf("%w: %w", domain.ErrVectorUpload, err))
		}
		committed++
	}

	// Stage 7: store the original bytes. On failure, compensate by
	// removing the chat's vectors so no index entries point at a file
	// that was never stored.
	key := fmt.Sprintf("%s/%s_%s", req.ChatID, uuid.NewString(), req.FileName)
	fileURL, err := s.blobs.Upload(ctx, key, req.Data, req.ContentType)
	if err != nil {
		s.compensate(ctx, req.ChatID, err)
		return nil, domain.NewStageError("store", fmt.Errorf("%w: %w", domain.ErrStorageUpload, err))
	}

	// Stage 8: point the chat record at the stored file. Vectors and blob
	// are already durable and valid; a failure here is reported for
	// operator reconciliation rather than rolled back.
	if err := s.chats.UpdateFile(ctx, req.ChatID, fileURL, req.FileName); err != nil {
		log.Error("ingest metadata update failed, indexed content has no record pointer",
			"err", err, "file_url", fileURL, "manual_intervention", true)
		s.alert(ctx, Alert{
			Reason: "metadata_update_failed",
			ChatID: req.ChatID,
			Detail: fmt.Sprintf("file %s indexed and stored at %s but chat record not updated: %v", req.FileName, fileURL, err),
		})
		return nil, domain.NewStageError("record", fmt.Errorf("%w: %w", domain.ErrMetadataUpdate, err))
	}

	log.Info("ingest complete", "chunks", len(doc.Chunks), "file_url", fileURL)
	return &Receipt{FileURL: fileURL, FileName: req.FileName, ChunkCount: len(doc.Chunks)}, nil
}

// compensate deletes the chat's vectors after a failure that left a partial
// index behind, either a committed upsert batch with later batches failed or
// a failed blob upload. The deletion is chat-scoped, not run-scoped: a
// concurrent or earlier ingestion for the same chat loses its vectors too.
// Compensation failure does not change the reported outcome but is flagged
// for manual cleanup.
func (s *Service) compensate(ctx context.Context, chatID string, cause error) {
	s.logger.Warn("ingest rolling back chat vectors", "chat_id", chatID, "err", cause)
	if err := s.index.DeleteByChat(ctx, chatID); err != nil {
		s.logger.Error("ingest compensation failed, orphaned vectors remain",
			"chat_id", chatID, "err", err, "manual_intervention", true)
		s.alert(ctx, Alert{
			Reason: "compensation_failed",
			ChatID: chatID,
			Detail: fmt.Sprintf("ingest failed (%v) and vector rollback also failed: %v", cause, err),
		})
	}
}

func (s *Service) alert(ctx context.Context, a Alert) {
	if s.alerts != nil {
		s.alerts.Alert(ctx, a)
	}
}

// --- pipeline stages ---

var extractStage fn.Stage[Request, extractedDoc] = func(_ context.Context, req Request) fn.Result[extractedDoc] {
	text, err := extract.Text(req.Data, req.FileName)
	if err != nil {
		return fn.Err[extractedDoc](domain.NewStageError("extract", err))
	}
	return fn.Ok(extractedDoc{Request: req, Text: text})
}

var chunkStage fn.Stage[extractedDoc, chunkedDoc] = func(_ context.Context, doc extractedDoc) fn.Result[chunkedDoc] {
	chunks, err := ChunkText(doc.Text, DefaultChunkSize, DefaultOverlap)
	if err != nil {
		return fn.Err[chunkedDoc](domain.NewStageError("chunk", err))
	}
	return fn.Ok(chunkedDoc{extractedDoc: doc, Chunks: chunks})
}

func (s *Service) embedStage() fn.Stage[chunkedDoc, embeddedDoc] {
	return func(ctx context.Context, doc chunkedDoc) fn.Result[embeddedDoc] {
		texts := fn.Map(doc.Chunks, func(c domain.Chunk) string { return c.Text })
		vectors, err := s.embed.Encode(ctx, texts)
		if err != nil {
			return fn.Err[embeddedDoc](domain.NewStageError("embed", fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)))
		}
		if len(vectors) != len(doc.Chunks) {
			return fn.Err[embeddedDoc](domain.NewStageError("embed",
				fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailed, len(vectors), len(doc.Chunks))))
		}
		return fn.Ok(embeddedDoc{chunkedDoc: doc, Vectors: vectors})
	}
}

// Purge removes a deleted chat's artifacts: its blob (when the chat had a
// file) and its index points, the latter under the shared retry budget.
// Best-effort; all failures are joined into the returned error.
func (s *Service) Purge(ctx context.Context, chatID, fileURL string) error {
	var errs []error

	if fileURL != "" {
		if key, ok := s.blobs.KeyFromURL(fileURL); ok {
			if err := s.blobs.Remove(ctx, key); err != nil {
				s.logger.Warn("purge blob remove failed", "chat_id", chatID, "key", key, "err", err)
				errs = append(errs, err)
			}
		} else {
			s.logger.Warn("purge could not derive storage key", "chat_id", chatID, "file_url", fileURL)
		}
	}

	del := fn.Retry(ctx, s.retry, func(ctx context.Context) fn.Result[struct{}] {
		return fn.FromPair(struct{}{}, s.index.DeleteByChat(ctx, chatID))
	})
	if _, err := del.Unwrap(); err != nil {
		s.logger.Error("purge vector delete exhausted retries", "chat_id", chatID, "err", err, "manual_intervention", true)
		s.alert(ctx, Alert{
			Reason: "purge_failed",
			ChatID: chatID,
			Detail: fmt.Sprintf("vector delete failed after retries: %v", err),
		})
		errs = append(errs, err)
	}

	return joinErrs(errs)
}

func joinErrs(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("purge: %d failures, first: %w", len(errs), errs[0])
	}
}
