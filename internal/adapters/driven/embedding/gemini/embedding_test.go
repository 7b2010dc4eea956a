package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())
}

func TestEmbedBatch_NoCallForEmptyOrOversized(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key", Dimensions: 256})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)

	_, err = svc.EmbedBatch(context.Background(), make([]string, MaxBatch+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 256, svc.Dimensions())
}
