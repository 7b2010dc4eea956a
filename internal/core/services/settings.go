package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize    = "chunking.size"
	keyChunkOverlap = "chunking.overlap"

	keyTopK      = "retrieval.top_k"
	keyThreshold = "retrieval.threshold"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBatch      = "embedding.batch_size"
	keyEmbedMaxChars   = "embedding.max_input_chars"
	keyEmbedTimeout    = "embedding.timeout"
	keyEmbedRateLimit  = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTimeout      = "llm.timeout"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTemperature  = "llm.temperature"
	keyLLMRateLimit    = "llm.requests_per_second"
	keyIndexBackend    = "index.backend"
	keyIndexM          = "index.m"
	keyIndexEfConstr   = "index.ef_construction"
	keyIndexEfSearch   = "index.ef_search"
	keyIndexInsertSize = "index.insert_batch_size"
	keyQdrantURL       = "index.qdrant_url"
	keyQdrantColl      = "index.qdrant_collection"
	keyQdrantAPIKey    = "index.qdrant_api_key"
	keyStorageBackend  = "storage.backend"
	keyStorageDataDir  = "storage.data_dir"
	keyStorageBucket   = "storage.bucket"

	keyConcurrency     = "ingestion.concurrency"
	keyMaxFileSize     = "ingestion.max_file_size_bytes"
	keyRollbackTimeout = "ingestion.rollback_timeout"
)

var settingsLog = logger.For("settings")

var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService reads and updates application settings in a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// LoadConfig builds the process configuration from a store, starting from
// domain.DefaultConfig, and validates it.
func LoadConfig(store driven.ConfigStore) (domain.Config, error) {
	cfg, err := NewSettingsService(store, nil).Get()
	if err != nil {
		return domain.Config{}, err
	}
	return *cfg, nil
}

// Get retrieves the current configuration. Unset keys keep their defaults.
func (s *SettingsService) Get() (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	cfg.Chunking.Size = s.getInt(keyChunkSize, cfg.Chunking.Size)
	cfg.Chunking.Overlap = s.getInt(keyChunkOverlap, cfg.Chunking.Overlap)

	cfg.Retrieval.TopK = s.getInt(keyTopK, cfg.Retrieval.TopK)
	cfg.Retrieval.Threshold = s.getFloat(keyThreshold, cfg.Retrieval.Threshold)

	cfg.Embedding.Provider = s.getProvider(keyEmbedProvider, cfg.Embedding.Provider)
	cfg.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[cfg.Embedding.Provider])
	cfg.Embedding.BaseURL = s.configStore.GetString(keyEmbedBaseURL) // No default - empty is valid for cloud providers
	cfg.Embedding.APIKey = s.configStore.GetString(keyEmbedAPIKey)
	cfg.Embedding.Dimensions = s.getInt(keyEmbedDims, cfg.Embedding.Dimensions)
	cfg.Embedding.BatchSize = s.getInt(keyEmbedBatch, cfg.Embedding.BatchSize)
	cfg.Embedding.MaxInputChars = s.getInt(keyEmbedMaxChars, cfg.Embedding.MaxInputChars)
	cfg.Embedding.Timeout = s.getDuration(keyEmbedTimeout, cfg.Embedding.Timeout)
	cfg.Embedding.RequestsPerSecond = s.getFloat(keyEmbedRateLimit, cfg.Embedding.RequestsPerSecond)

	cfg.LLM.Provider = s.getProvider(keyLLMProvider, cfg.LLM.Provider)
	cfg.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[cfg.LLM.Provider])
	cfg.LLM.BaseURL = s.configStore.GetString(keyLLMBaseURL)
	cfg.LLM.APIKey = s.configStore.GetString(keyLLMAPIKey)
	cfg.LLM.Timeout = s.getDuration(keyLLMTimeout, cfg.LLM.Timeout)
	cfg.LLM.MaxTokens = s.getInt(keyLLMMaxTokens, cfg.LLM.MaxTokens)
	cfg.LLM.Temperature = s.getFloat(keyLLMTemperature, cfg.LLM.Temperature)
	cfg.LLM.RequestsPerSecond = s.getFloat(keyLLMRateLimit, cfg.LLM.RequestsPerSecond)

	if backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend)); backend != "" {
		cfg.Index.Backend = backend
	}
	cfg.Index.M = s.getInt(keyIndexM, cfg.Index.M)
	cfg.Index.EfConstruction = s.getInt(keyIndexEfConstr, cfg.Index.EfConstruction)
	cfg.Index.EfSearch = s.getInt(keyIndexEfSearch, cfg.Index.EfSearch)
	cfg.Index.InsertBatchSize = s.getInt(keyIndexInsertSize, cfg.Index.InsertBatchSize)
	cfg.Index.QdrantURL = s.getString(keyQdrantURL, cfg.Index.QdrantURL)
	cfg.Index.QdrantCollection = s.getString(keyQdrantColl, cfg.Index.QdrantCollection)
	cfg.Index.QdrantAPIKey = s.configStore.GetString(keyQdrantAPIKey)

	if backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend)); backend != "" {
		cfg.Storage.Backend = backend
	}
	cfg.Storage.DataDir = s.getString(keyStorageDataDir, cfg.Storage.DataDir)
	cfg.Storage.Bucket = s.configStore.GetString(keyStorageBucket)

	cfg.Retry.Embedding = s.getRetry("embedding", cfg.Retry.Embedding)
	cfg.Retry.Synthesis = s.getRetry("synthesis", cfg.Retry.Synthesis)
	cfg.Retry.Store = s.getRetry("store", cfg.Retry.Store)
	cfg.Retry.Index = s.getRetry("index", cfg.Retry.Index)

	cfg.Ingestion.Concurrency = s.getInt(keyConcurrency, cfg.Ingestion.Concurrency)
	cfg.Ingestion.MaxFileSizeBytes = int64(s.getInt(keyMaxFileSize, int(cfg.Ingestion.MaxFileSizeBytes)))
	cfg.Ingestion.RollbackTimeout = s.getDuration(keyRollbackTimeout, cfg.Ingestion.RollbackTimeout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate provider supports embeddings
	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyEmbedBaseURL, "http://localhost:11434")
	}

	return s.setAll(map[string]any{
		keyEmbedProvider: provider.String(),
		keyEmbedModel:    model,
		keyEmbedBaseURL:  baseURL,
		keyEmbedAPIKey:   apiKey,
		keyEmbedDims:     domain.EmbeddingDimensions()[model],
	})
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyLLMBaseURL, "http://localhost:11434")
	}

	return s.setAll(map[string]any{
		keyLLMProvider: provider.String(),
		keyLLMModel:    model,
		keyLLMBaseURL:  baseURL,
		keyLLMAPIKey:   apiKey,
	})
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&cfg.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&cfg.LLM)
}

func (s *SettingsService) setAll(values map[string]any) error {
	for key, value := range values {
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

// getDuration accepts Go duration strings ("30s") or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	if str, ok := val.(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d
		}
		secs, err := strconv.ParseFloat(str, 64)
		if err != nil {
			settingsLog.Warn("ignoring %s=%q: not a duration", key, str)
			return defaultVal
		}
		return time.Duration(secs * float64(time.Second))
	}
	return time.Duration(s.configStore.GetFloat(key) * float64(time.Second))
}

func (s *SettingsService) getRetry(name string, defaultVal domain.RetrySettings) domain.RetrySettings {
	prefix := "retry." + name + "."
	return domain.RetrySettings{
		Attempts:  s.getInt(prefix+"attempts", defaultVal.Attempts),
		BaseDelay: s.getDuration(prefix+"base_delay", defaultVal.BaseDelay),
		MaxDelay:  s.getDuration(prefix+"max_delay", defaultVal.MaxDelay),
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		settingsLog.Warn("ignoring unknown provider %s=%q", key, val)
		return defaultVal
	}
	return provider
}
