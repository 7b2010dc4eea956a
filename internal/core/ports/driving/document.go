package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DocumentService reads committed document metadata.
type DocumentService interface {
	// List returns all committed documents, newest first.
	List(ctx context.Context) ([]domain.DocumentMetadata, error)

	// Get retrieves one document. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, documentID string) (*domain.DocumentMetadata, error)

	// Verify compares the document store with the vector index.
	// It reports divergence and changes nothing.
	Verify(ctx context.Context) (*domain.ConsistencyReport, error)
}
