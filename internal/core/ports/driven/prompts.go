package driven

import (
	"fmt"
	"strings"
)

// PromptStore supplies the templates sent to the language model.
type PromptStore interface {
	// Load returns the named template. Unknown names are an error; a
	// missing or invalid override yields the entry in DefaultPrompts.
	Load(name string) (string, error)
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswerSystem is the system prompt for answer synthesis.
	// It has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser frames the retrieved context and question.
	// The template expects %s (context) then %s (question).
	PromptAnswerUser = "answer_user"
)

// DefaultPrompts are the built-in templates, used when no override exists.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptAnswerSystem: `You answer questions using only the numbered source passages you are given.

Rules:
1. Use ONLY information from the passages. Never fabricate information.
2. Cite every statement with the passage marker it came from, e.g. [Source 1] or [Source 1, 3].
3. If the passages do not contain the answer, say so plainly.
4. Be concise but thorough. Prefer short, direct answers.`,

	PromptAnswerUser: `Sources:

%s

Question: %s

Answer with inline [Source N] citations:`,
}

// promptVerbs is the number of %s verbs each template must contain.
var promptVerbs = map[string]int{
	PromptAnswerSystem: 0,
	PromptAnswerUser:   2,
}

// CheckPrompt reports whether text can stand in for the named template.
func CheckPrompt(name, text string) error {
	want, ok := promptVerbs[name]
	if !ok {
		return fmt.Errorf("unknown prompt %q", name)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("prompt %q is empty", name)
	}
	if got := strings.Count(text, "%s"); got != want {
		return fmt.Errorf("prompt %q needs %d %%s placeholders, has %d", name, want, got)
	}
	return nil
}
