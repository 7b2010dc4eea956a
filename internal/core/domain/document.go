package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Object store layout. Every document owns the keys under DocumentPrefix.
const (
	// DocumentsPrefix is the root of all document objects.
	DocumentsPrefix = "documents/"

	// MetadataObject is the per-document metadata file name.
	MetadataObject = "metadata.json"

	// ChunksObject is the per-document chunk dump file name.
	ChunksObject = "chunks.json"

	// OriginalObject is the base name of the stored upload.
	OriginalObject = "original"
)

// DocumentMetadata is the committed record of an ingested document.
// It is written only after every chunk has been embedded and indexed.
type DocumentMetadata struct {
	// DocumentID is the opaque identifier generated at upload.
	DocumentID string `json:"document_id"`

	// Filename is the caller-supplied file name.
	Filename string `json:"filename"`

	// UploadTimestamp is when ingestion committed.
	UploadTimestamp time.Time `json:"upload_timestamp"`

	// FileSizeBytes is the size of the original upload.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// TextLength is the length of the extracted text in runes.
	TextLength int `json:"text_length"`

	// ContentType is the MIME type the text was extracted as.
	ContentType string `json:"content_type"`

	// ChunkCount is the number of vector records written for this document.
	ChunkCount int `json:"chunk_count"`

	// EmbeddingModel is the model that produced the vectors.
	EmbeddingModel string `json:"embedding_model"`

	// VectorDimension is the length of every embedding.
	VectorDimension int `json:"vector_dimension"`
}

// Chunk is a contiguous range of a document's extracted text.
// StartChar and EndChar are rune offsets, EndChar exclusive.
type Chunk struct {
	// DocumentID is a back-reference to the owning document.
	DocumentID string `json:"document_id,omitempty"`

	// Index is the 0-based position within the document.
	Index int `json:"chunk_index"`

	// Text is the chunk content.
	Text string `json:"text"`

	// StartChar is the first rune offset covered.
	StartChar int `json:"start_char"`

	// EndChar is one past the last rune offset covered.
	EndChar int `json:"end_char"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.EndChar - c.StartChar
}

// VectorRecord is a chunk plus its embedding, as stored in the vector index.
// Records are never mutated; re-ingestion writes new records.
type VectorRecord struct {
	// ID is unique across the index. See VectorID.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int

	// Embedding has exactly the index's configured dimension.
	Embedding []float32

	// ChunkText is the chunk content.
	ChunkText string

	// Filename is the source document's file name.
	Filename string

	// StartChar is the chunk's first rune offset.
	StartChar int

	// EndChar is one past the chunk's last rune offset.
	EndChar int
}

// VectorID returns the vector identifier for a document's chunk.
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", documentID, chunkIndex)
}

// DocumentPrefix returns the object key prefix owned by a document.
func DocumentPrefix(documentID string) string {
	return DocumentsPrefix + documentID + "/"
}

// MetadataKey returns the object key of a document's metadata.
func MetadataKey(documentID string) string {
	return DocumentPrefix(documentID) + MetadataObject
}

// ChunksKey returns the object key of a document's chunk dump.
func ChunksKey(documentID string) string {
	return DocumentPrefix(documentID) + ChunksObject
}

// OriginalKey returns the object key of a document's original bytes.
// ext may be given with or without the leading dot.
func OriginalKey(documentID, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return DocumentPrefix(documentID) + OriginalObject
	}
	return DocumentPrefix(documentID) + OriginalObject + "." + ext
}

// DocumentIDFromKey extracts the document ID from an object key.
// Returns false if the key is not under DocumentsPrefix.
func DocumentIDFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, DocumentsPrefix)
	if !ok {
		return "", false
	}
	id, _, found := strings.Cut(rest, "/")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// IsMetadataKey reports whether key names a document metadata object.
func IsMetadataKey(key string) bool {
	_, ok := DocumentIDFromKey(key)
	return ok && path.Base(key) == MetadataObject
}
