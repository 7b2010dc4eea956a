package driven

import "github.com/custodia-labs/docrag/internal/core/domain"

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding creates the embedding provider and pings it.
	ValidateEmbedding(settings *domain.EmbeddingSettings) error

	// ValidateLLM creates the LLM provider and pings it.
	ValidateLLM(settings *domain.LLMSettings) error
}
