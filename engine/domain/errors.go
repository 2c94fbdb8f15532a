package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and retrieval pipelines. Handlers map
// these onto HTTP statuses; everything wraps one of them.
var (
	// ErrConfiguration marks a programmer error in pipeline parameters,
	// e.g. a chunk overlap that is not smaller than the chunk size.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrForbidden marks an ownership check failure.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a lookup that matched nothing. Store
	// implementations wrap it so pipelines can tell a missing row from a
	// store outage without importing the store package.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFileType marks an upload with an extension the
	// extractor does not understand.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyContent marks an upload whose extracted text is empty or
	// whitespace only.
	ErrEmptyContent = errors.New("empty content")

	// ErrEmbeddingFailed marks a failed embedding batch. Never retried;
	// the batch is all-or-nothing.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrIndexProvisioning marks a failure creating the collection or its
	// payload index. Fatal to the run, no retry.
	ErrIndexProvisioning = errors.New("index provisioning failed")

	// ErrVectorUpload marks an upsert that failed after exhausting its
	// retry budget.
	ErrVectorUpload = errors.New("vector upload failed")

	// ErrStorageUpload marks a blob upload failure. The run's vectors are
	// rolled back before this is reported.
	ErrStorageUpload = errors.New("storage upload failed")

	// ErrMetadataUpdate marks a chat-record update failure after vectors
	// and blob are already durable. Not rolled back; needs operator
	// follow-up.
	ErrMetadataUpdate = errors.New("metadata update failed")
)

// StageError wraps a sentinel with the pipeline stage that produced it.
type StageError struct {
	Stage   string
	Wrapped error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest: stage %s: %s", e.Stage, e.Wrapped)
}

func (e *StageError) Unwrap() error { return e.Wrapped }

// NewStageError creates a StageError.
func NewStageError(stage string, wrapped error) *StageError {
	return &StageError{Stage: stage, Wrapped: wrapped}
}
