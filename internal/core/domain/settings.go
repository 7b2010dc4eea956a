package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google's Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings controls how extracted text is split.
type ChunkingSettings struct {
	// Size is the target chunk length in characters.
	Size int

	// Overlap is the number of characters repeated between neighbouring chunks.
	Overlap int
}

// RetrievalSettings holds query defaults.
type RetrievalSettings struct {
	// TopK is the default number of chunks retrieved per question.
	TopK int

	// Threshold is the default minimum similarity score.
	Threshold float64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions overrides the model's native dimension when non-zero.
	Dimensions int

	// BatchSize is the maximum number of texts per provider call.
	BatchSize int

	// MaxInputChars is the per-text ceiling; longer texts fail with ErrInputTooLarge.
	MaxInputChars int

	// Timeout bounds a single provider call.
	Timeout time.Duration

	// RequestsPerSecond limits the provider call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Timeout bounds a single generation call.
	Timeout time.Duration

	// MaxTokens caps the answer length.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// RequestsPerSecond limits the provider call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendHNSW is the in-process HNSW graph.
	IndexBackendHNSW IndexBackend = "hnsw"

	// IndexBackendQdrant is a remote Qdrant collection.
	IndexBackendQdrant IndexBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendHNSW || b == IndexBackendQdrant
}

// IndexSettings holds vector index configuration.
// The metric is always cosine and is fixed when the index is created.
type IndexSettings struct {
	// Backend selects the implementation.
	Backend IndexBackend

	// M is the graph connectivity: links per node per layer.
	M int

	// EfConstruction is the candidate list size used while building.
	EfConstruction int

	// EfSearch is the candidate list size used while querying.
	EfSearch int

	// InsertBatchSize is the maximum number of records per insert call.
	InsertBatchSize int

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// QdrantCollection is the collection name.
	QdrantCollection string

	// QdrantAPIKey is sent as the api-key header when set.
	QdrantAPIKey string
}

// StorageBackend selects the document store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendMemory keeps objects in process memory.
	StorageBackendMemory StorageBackend = "memory"

	// StorageBackendSQLite keeps objects in a local SQLite database.
	StorageBackendSQLite StorageBackend = "sqlite"

	// StorageBackendGCS keeps objects in a Google Cloud Storage bucket.
	StorageBackendGCS StorageBackend = "gcs"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendMemory, StorageBackendSQLite, StorageBackendGCS:
		return true
	default:
		return false
	}
}

// StorageSettings holds document store configuration.
type StorageSettings struct {
	// Backend selects the implementation.
	Backend StorageBackend

	// DataDir holds local databases.
	DataDir string

	// Bucket is the GCS bucket name.
	Bucket string
}

// RetrySettings configures one retry policy.
type RetrySettings struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the delay before the second attempt; it doubles after that.
	BaseDelay time.Duration

	// MaxDelay caps a single delay.
	MaxDelay time.Duration
}

// RetryConfig holds the retry policy for each remote call site.
type RetryConfig struct {
	// Embedding applies to embedding provider calls.
	Embedding RetrySettings

	// Synthesis applies to language model calls.
	Synthesis RetrySettings

	// Store applies to document store writes and deletes.
	Store RetrySettings

	// Index applies to vector index inserts, searches and deletes.
	Index RetrySettings
}

// IngestionSettings holds upload limits.
type IngestionSettings struct {
	// Concurrency bounds how many documents are ingested at once.
	Concurrency int

	// MaxFileSizeBytes rejects larger uploads.
	MaxFileSizeBytes int64

	// RollbackTimeout bounds compensating cleanup after a failure.
	RollbackTimeout time.Duration
}

// Config is the process-wide configuration. It is built once at startup and
// passed to constructors; nothing reads it from globals.
type Config struct {
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Index     IndexSettings
	Storage   StorageSettings
	Retry     RetryConfig
	Ingestion IngestionSettings
}

// DefaultConfig returns configuration with sensible defaults.
// AI providers default to local Ollama so nothing needs an API key.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingSettings{
			Size:    4000,
			Overlap: 800,
		},
		Retrieval: RetrievalSettings{
			TopK:      5,
			Threshold: 0.7,
		},
		Embedding: EmbeddingSettings{
			Provider:      AIProviderOllama,
			Model:         DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize:     96,
			MaxInputChars: 30000,
			Timeout:       30 * time.Second,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Timeout:     60 * time.Second,
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Index: IndexSettings{
			Backend:          IndexBackendHNSW,
			M:                16,
			EfConstruction:   200,
			EfSearch:         64,
			InsertBatchSize:  500,
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "docrag",
		},
		Storage: StorageSettings{
			Backend: StorageBackendSQLite,
		},
		Retry: RetryConfig{
			Embedding: RetrySettings{Attempts: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
			Synthesis: RetrySettings{Attempts: 2, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
			Store:     RetrySettings{Attempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second},
			Index:     RetrySettings{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second},
		},
		Ingestion: IngestionSettings{
			Concurrency:      4,
			MaxFileSizeBytes: 10 << 20,
			RollbackTimeout:  30 * time.Second,
		},
	}
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, chunking.size)", ErrInvalidInput)
	}
	if c.Chunking.Size > c.Embedding.MaxInputChars && c.Embedding.MaxInputChars > 0 {
		return fmt.Errorf("%w: chunking.size exceeds embedding.max_input_chars", ErrInvalidInput)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidInput)
	}
	if c.Retrieval.Threshold < -1 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("%w: retrieval.threshold must be in [-1, 1]", ErrInvalidInput)
	}
	if !c.Embedding.Provider.IsValid() || c.Embedding.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: unsupported embedding provider %q", ErrInvalidInput, c.Embedding.Provider)
	}
	if !c.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unsupported llm provider %q", ErrInvalidInput, c.LLM.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalidInput)
	}
	if !c.Index.Backend.IsValid() {
		return fmt.Errorf("%w: unsupported index backend %q", ErrInvalidInput, c.Index.Backend)
	}
	if c.Index.M < 2 || c.Index.EfConstruction <= 0 || c.Index.EfSearch <= 0 {
		return fmt.Errorf("%w: index.m must be >= 2 and ef values positive", ErrInvalidInput)
	}
	if !c.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unsupported storage backend %q", ErrInvalidInput, c.Storage.Backend)
	}
	if c.Storage.Backend == StorageBackendGCS && c.Storage.Bucket == "" {
		return fmt.Errorf("%w: storage.bucket is required for gcs", ErrInvalidInput)
	}
	retries := []struct {
		name string
		r    RetrySettings
	}{
		{"embedding", c.Retry.Embedding},
		{"synthesis", c.Retry.Synthesis},
		{"store", c.Retry.Store},
		{"index", c.Retry.Index},
	}
	for _, rs := range retries {
		if rs.r.Attempts < 1 {
			return fmt.Errorf("%w: retry.%s.attempts must be >= 1", ErrInvalidInput, rs.name)
		}
	}
	if c.Ingestion.Concurrency <= 0 {
		return fmt.Errorf("%w: ingestion.concurrency must be positive", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
	}
}
