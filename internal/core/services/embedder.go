package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/retry"
)

var embedLog = logger.For("embed")

// EmbeddingClient turns texts into vectors through a provider, enforcing the
// per-text ceiling, batching, and retrying transient failures.
type EmbeddingClient struct {
	provider      driven.EmbeddingService
	batchSize     int
	maxInputChars int
	policy        retry.Policy
}

// NewEmbeddingClient creates an embedding client.
// Zero batchSize or maxInputChars fall back to the configured defaults.
func NewEmbeddingClient(
	provider driven.EmbeddingService,
	settings domain.EmbeddingSettings,
	policy retry.Policy,
) *EmbeddingClient {
	defaults := domain.DefaultConfig().Embedding

	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = defaults.BatchSize
	}
	maxInputChars := settings.MaxInputChars
	if maxInputChars <= 0 {
		maxInputChars = defaults.MaxInputChars
	}

	return &EmbeddingClient{
		provider:      provider,
		batchSize:     batchSize,
		maxInputChars: maxInputChars,
		policy:        policy,
	}
}

// BatchSize returns the maximum number of texts per provider call.
func (c *EmbeddingClient) BatchSize() int {
	return c.batchSize
}

// ModelName returns the provider's model name.
func (c *EmbeddingClient) ModelName() string {
	return c.provider.ModelName()
}

// Dimensions returns the provider's vector size.
func (c *EmbeddingClient) Dimensions() int {
	return c.provider.Dimensions()
}

// Embed returns one vector per text, in input order.
//
// A text longer than the ceiling fails with domain.ErrInputTooLarge before any
// provider call. Every other failure wraps domain.ErrEmbeddingUnavailable.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, text := range texts {
		if n := utf8.RuneCountInString(text); n > c.maxInputChars {
			return nil, fmt.Errorf("%w: text %d has %d characters, limit is %d",
				domain.ErrInputTooLarge, i, n, c.maxInputChars)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				domain.ErrEmbeddingUnavailable, i, len(v), dim)
		}
	}

	return vectors, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	res := c.policy.Do(ctx, func(ctx context.Context) error {
		out, err := c.provider.EmbedBatch(ctx, texts)
		if err != nil {
			embedLog.Debug("batch of %d failed: %v", len(texts), err)
			return err
		}
		vectors = out
		return nil
	})

	if !res.OK() {
		embedLog.Warn("embedding %s after %d attempts: %v", res.Status, res.Attempts, res.Err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, res.Err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(vectors), len(texts))
	}
	return vectors, nil
}
