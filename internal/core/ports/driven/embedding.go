package driven

import "context"

// EmbeddingService turns text into vectors with a fixed model.
// Adapters exist for Ollama, OpenAI and Gemini.
//
// Failures wrap domain.ErrRateLimited when the provider throttles and
// domain.ErrTransient when a later attempt may succeed.
type EmbeddingService interface {
	// EmbedBatch returns one vector per input, in input order, from a
	// single provider call. An empty batch returns nil without a call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length the model produces.
	Dimensions() int

	// ModelName is recorded on every document embedded with this service.
	ModelName() string

	// Ping checks credentials and reachability without embedding anything.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
