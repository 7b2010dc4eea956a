package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Input errors. Reported immediately, never retried.

	// ErrUnsupportedFormat indicates no extractor handles the content type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInputTooLarge indicates a text exceeds the embedding model's input ceiling.
	ErrInputTooLarge = errors.New("input too large")

	// ErrFileTooLarge indicates an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrDimensionMismatch indicates an embedding length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyDocument indicates extraction produced no text.
	ErrEmptyDocument = errors.New("no text could be extracted")

	// Transient errors. Retried with backoff before surfacing.

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a temporary provider or network failure.
	ErrTransient = errors.New("transient failure")

	// Ingestion stage errors.

	// ErrExtractionFailed indicates text could not be extracted from the upload.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrChunkingFailed indicates the extracted text could not be chunked.
	ErrChunkingFailed = errors.New("chunking failed")

	// ErrEmbeddingUnavailable indicates embeddings could not be produced,
	// either because retries were exhausted or the provider rejected the call.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexInsertFailed indicates vector records could not be inserted.
	ErrIndexInsertFailed = errors.New("index insert failed")

	// ErrStoreFailed indicates the document store rejected a write or delete.
	ErrStoreFailed = errors.New("document store failed")

	// ErrVectorDeleteFailed indicates a document's vectors could not be removed.
	// The document is left in place.
	ErrVectorDeleteFailed = errors.New("vector delete failed")

	// Retrieval errors.

	// ErrSearchFailed indicates the vector index could not be searched.
	ErrSearchFailed = errors.New("vector search failed")

	// ErrSynthesisUnavailable indicates the language model failed after retry.
	ErrSynthesisUnavailable = errors.New("answer synthesis unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// IsInputError reports whether err is the caller's fault and must not be retried.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrDimensionMismatch)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
