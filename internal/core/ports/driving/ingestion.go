package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// IngestionService owns the document lifecycle.
type IngestionService interface {
	// Upload extracts, chunks, embeds and indexes a document, then commits its
	// metadata. On failure nothing from the attempt remains visible and the
	// error is a *domain.IngestError naming the failed stage.
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.DocumentMetadata, error)

	// UploadMany ingests independent documents concurrently.
	// Results are returned in request order.
	UploadMany(ctx context.Context, reqs []domain.UploadRequest) []domain.UploadResult

	// Delete removes a document's vectors, then its stored objects.
	// Deleting an unknown document succeeds.
	Delete(ctx context.Context, documentID string) error
}
