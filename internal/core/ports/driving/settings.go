package driving

import "github.com/custodia-labs/docrag/internal/core/domain"

// SettingsService reads and updates persisted configuration.
type SettingsService interface {
	// Get returns the effective configuration, defaults filled in.
	Get() (*domain.Config, error)

	// SetEmbeddingProvider configures and saves the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures and saves the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error
}
