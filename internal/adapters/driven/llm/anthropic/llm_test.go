package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestComplete(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"content":[{"type":"text","text":"Yes "},{"type":"tool_use"},{"type":"text","text":"[Source 2]"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":120,"output_tokens":9}
		}`))
	})

	out, err := svc.Complete(context.Background(), driven.UserPrompt("cite sources", "is it?"))

	require.NoError(t, err)
	assert.Equal(t, "Yes [Source 2]", out.Text)
	assert.False(t, out.Truncated)
	assert.Equal(t, 120, out.InputTokens)
	assert.Equal(t, 9, out.OutputTokens)

	assert.Equal(t, "cite sources", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
}

func TestComplete_Truncated(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"partial"}],"stop_reason":"max_tokens"}`))
	})

	out, err := svc.Complete(context.Background(), driven.UserPrompt("", "q"))

	require.NoError(t, err)
	assert.True(t, out.Truncated)
}

func TestComplete_Overloaded(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := svc.Complete(context.Background(), driven.UserPrompt("", "hi"))

	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestComplete_NoMessages(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("unexpected request")
	})

	_, err := svc.Complete(context.Background(), driven.CompletionRequest{System: "s"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
