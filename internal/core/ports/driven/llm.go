package driven

import "context"

// LLMService turns a grounded prompt into answer text.
// Adapters exist for Ollama, OpenAI, Anthropic and Gemini.
type LLMService interface {
	// Complete runs one completion. Provider failures are wrapped with
	// domain.ErrRateLimited or domain.ErrTransient when a retry may succeed.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName returns the model answering requests.
	ModelName() string

	// Ping checks credentials and reachability without generating text.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a system instruction plus the conversation so far.
type CompletionRequest struct {
	// System holds the instructions. Empty means none.
	System string

	// Messages alternate user and assistant turns, ending with a user turn.
	Messages []Message

	// MaxTokens caps the reply. Zero lets the adapter pick.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn.
type Message struct {
	Role    Role
	Content string
}

// Completion is the model's reply.
type Completion struct {
	Text string

	// Truncated is set when the reply stopped at MaxTokens.
	Truncated bool

	// Token usage as reported by the provider; zero when unknown.
	InputTokens  int
	OutputTokens int
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, user string) CompletionRequest {
	return CompletionRequest{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}
