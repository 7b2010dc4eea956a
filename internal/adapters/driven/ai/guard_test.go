package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

type stubLLM struct {
	calls int
	err   error
}

func (s *stubLLM) Complete(context.Context, driven.CompletionRequest) (driven.Completion, error) {
	s.calls++
	if s.err != nil {
		return driven.Completion{}, s.err
	}
	return driven.Completion{Text: "ok"}, nil
}

func (s *stubLLM) ModelName() string          { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

func TestGuard_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	stub := &stubLLM{err: fmt.Errorf("%w: 503", domain.ErrTransient)}
	guard := NewGuard(GuardConfig{Name: "llm/test", TripAfter: 3, BreakerTimeout: time.Hour})
	llm := NewGuardedLLM(stub, guard)

	for range 3 {
		_, err := llm.Complete(context.Background(), driven.UserPrompt("", "q"))
		assert.ErrorIs(t, err, domain.ErrTransient)
	}
	assert.Equal(t, gobreaker.StateOpen, guard.State())

	_, err := llm.Complete(context.Background(), driven.UserPrompt("", "q"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, domain.IsTransient(err))
	assert.Equal(t, 3, stub.calls, "open breaker does not call the provider")
}

func TestGuard_PermanentErrorsDoNotTrip(t *testing.T) {
	stub := &stubLLM{err: errors.New("400 bad request")}
	guard := NewGuard(GuardConfig{Name: "llm/test", TripAfter: 2})
	llm := NewGuardedLLM(stub, guard)

	for range 5 {
		_, _ = llm.Complete(context.Background(), driven.UserPrompt("", "q"))
	}

	assert.Equal(t, gobreaker.StateClosed, guard.State())
	assert.Equal(t, 5, stub.calls)
}

func TestGuard_BacksOffAfterRateLimit(t *testing.T) {
	guard := NewGuard(GuardConfig{Name: "embed/test", Backoff: time.Hour})
	now := time.Now()
	guard.now = func() time.Time { return now }

	err := guard.Do(context.Background(), func(context.Context) error {
		return fmt.Errorf("%w: 429", domain.ErrRateLimited)
	})
	require.ErrorIs(t, err, domain.ErrRateLimited)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err = guard.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestGuard_RateLimiterHonoursContext(t *testing.T) {
	guard := NewGuard(GuardConfig{Name: "embed/test", RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, guard.Do(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := guard.Do(ctx, func(context.Context) error { return nil })

	assert.Error(t, err)
}

func TestGuardedEmbedding_PassesThrough(t *testing.T) {
	guard := NewGuard(GuardConfig{Name: "embed/test"})
	inner := &stubEmbedding{}
	svc := NewGuardedEmbedding(inner, guard)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	assert.Equal(t, "stub-embed", svc.ModelName())
}

type stubEmbedding struct{}

func (stubEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (stubEmbedding) Dimensions() int            { return 2 }
func (stubEmbedding) ModelName() string          { return "stub-embed" }
func (stubEmbedding) Ping(context.Context) error { return nil }
func (stubEmbedding) Close() error               { return nil }
