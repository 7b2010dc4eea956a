package driven

import "github.com/custodia-labs/docrag/internal/core/domain"

// Chunker splits extracted text into ordered, overlapping chunks.
// Implementations must be deterministic: the same text always yields the same chunks.
type Chunker interface {
	// Chunk splits text. Empty text yields no chunks.
	Chunk(text string) ([]domain.Chunk, error)
}
