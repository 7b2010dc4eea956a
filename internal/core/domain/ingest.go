package domain

import "fmt"

// IngestState is a step of the ingestion state machine.
type IngestState string

// Ingestion states in the order a successful upload passes through them.
// StateFailed may follow any non-terminal state.
const (
	StateReceived      IngestState = "received"
	StateTextExtracted IngestState = "text_extracted"
	StateChunked       IngestState = "chunked"
	StateEmbedding     IngestState = "embedding"
	StateIndexed       IngestState = "indexed"
	StateCommitted     IngestState = "committed"
	StateFailed        IngestState = "failed"
)

// IsValid returns true if the state is recognised.
func (s IngestState) IsValid() bool {
	switch s {
	case StateReceived, StateTextExtracted, StateChunked, StateEmbedding,
		StateIndexed, StateCommitted, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for Committed and Failed.
func (s IngestState) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed
}

// String returns the string representation.
func (s IngestState) String() string {
	return string(s)
}

// Next returns the state that follows s on the success path.
// Terminal states return themselves.
func (s IngestState) Next() IngestState {
	switch s {
	case StateReceived:
		return StateTextExtracted
	case StateTextExtracted:
		return StateChunked
	case StateChunked:
		return StateEmbedding
	case StateEmbedding:
		return StateIndexed
	case StateIndexed:
		return StateCommitted
	default:
		return s
	}
}

// IngestError reports a failed upload and the stage that failed.
// Err wraps one of the stage sentinels (ErrExtractionFailed, ErrChunkingFailed,
// ErrEmbeddingUnavailable, ErrIndexInsertFailed, ErrStoreFailed) or an input error.
type IngestError struct {
	// DocumentID is the identifier that was allocated for the attempt.
	// No document with this ID is visible after the failure.
	DocumentID string

	// Stage is the state the pipeline was trying to reach.
	Stage IngestState

	// Err is the underlying cause.
	Err error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// UploadRequest is a single document submitted for ingestion.
type UploadRequest struct {
	// Filename is the caller's name for the document. Required.
	Filename string

	// ContentType is the MIME type. Detected from Filename when empty.
	ContentType string

	// Content is the raw document bytes.
	Content []byte
}

// UploadResult pairs a request with its outcome in a batch upload.
type UploadResult struct {
	// Filename echoes the request.
	Filename string

	// Document is set on success.
	Document *DocumentMetadata

	// Err is set on failure.
	Err error
}
