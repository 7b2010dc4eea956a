package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// VectorIndex stores vector records and answers approximate nearest-neighbour
// queries. The distance metric is cosine and is fixed when the index is created.
//
// Insert and DeleteByDocument are idempotent so concurrent retries and
// rollbacks for the same document are safe.
type VectorIndex interface {
	// Insert adds records. A record whose ID is already live is skipped.
	// Fails with domain.ErrDimensionMismatch, before writing anything,
	// if any embedding has the wrong length.
	Insert(ctx context.Context, records []domain.VectorRecord) error

	// Search returns at most topK records scoring at least threshold,
	// ordered by descending similarity. No matches is not an error.
	Search(ctx context.Context, query []float32, topK int, threshold float64) ([]domain.SearchHit, error)

	// DeleteByDocument removes every record of a document and returns the count.
	// Returns 0 without error when none exist.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// DocumentIDs returns the distinct document IDs present in the index.
	DocumentIDs(ctx context.Context) ([]string, error)

	// Dimension returns the configured embedding length.
	Dimension() int

	// Close releases resources.
	Close() error
}
