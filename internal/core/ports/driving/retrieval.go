package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// RetrievalService answers questions from indexed documents.
type RetrievalService interface {
	// Query answers a question with citations. When nothing relevant is
	// retrieved the answer says so and Found is false; that is not an error.
	Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)

	// Search returns ranked chunks without synthesising an answer.
	Search(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.SearchHit, error)
}
