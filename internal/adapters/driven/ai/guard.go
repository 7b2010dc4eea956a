package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

var guardLog = logger.For("ai")

// rateLimitBackoff is how long calls pause after a provider throttles us.
const rateLimitBackoff = 10 * time.Second

// GuardConfig controls the client-side protection around a provider.
type GuardConfig struct {
	// Name labels the breaker in logs.
	Name string

	// RequestsPerSecond is the sustained call rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size. Defaults to 1 when limiting.
	Burst int

	// Backoff is the pause after a rate-limit response (default 10s).
	Backoff time.Duration

	// BreakerTimeout is how long the breaker stays open (default 30s).
	BreakerTimeout time.Duration

	// TripAfter is the number of consecutive failures that opens the breaker (default 5).
	TripAfter uint32
}

// Guard rate-limits calls to a provider and stops calling it while it is failing.
// Only transient failures count against the breaker; a bad request says
// nothing about provider health.
type Guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	backoff time.Duration
	now     func() time.Time

	mu      sync.Mutex
	retryAt time.Time
}

// NewGuard creates a guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.Backoff == 0 {
		cfg.Backoff = rateLimitBackoff
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}

	g := &Guard{backoff: cfg.Backoff, now: time.Now}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	tripAfter := cfg.TripAfter
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				guardLog.Warn("%s circuit breaker opened after repeated failures", name)
				return
			}
			guardLog.Debug("%s circuit breaker: %s -> %s", name, from, to)
		},
	})
	return g
}

// Do runs op once the limiter and breaker allow it.
// An open breaker fails fast with gobreaker.ErrOpenState, which is not retryable.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := g.wait(ctx); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, op(ctx)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s unavailable: %w", g.breaker.Name(), err)
	case errors.Is(err, domain.ErrRateLimited):
		g.mu.Lock()
		g.retryAt = g.now().Add(g.backoff)
		g.mu.Unlock()
	}
	return err
}

// State reports the breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guard) wait(ctx context.Context) error {
	g.mu.Lock()
	retryAt := g.retryAt
	g.mu.Unlock()

	if d := retryAt.Sub(g.now()); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// Ensure guarded wrappers implement the interfaces.
var (
	_ driven.EmbeddingService = (*GuardedEmbedding)(nil)
	_ driven.LLMService       = (*GuardedLLM)(nil)
)

// GuardedEmbedding routes every embedding call through a Guard.
type GuardedEmbedding struct {
	driven.EmbeddingService
	guard *Guard
}

// NewGuardedEmbedding wraps svc.
func NewGuardedEmbedding(svc driven.EmbeddingService, guard *Guard) *GuardedEmbedding {
	return &GuardedEmbedding{EmbeddingService: svc, guard: guard}
}

// EmbedBatch generates embeddings for multiple texts.
func (g *GuardedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// GuardedLLM routes every completion through a Guard.
type GuardedLLM struct {
	driven.LLMService
	guard *Guard
}

// NewGuardedLLM wraps svc.
func NewGuardedLLM(svc driven.LLMService, guard *Guard) *GuardedLLM {
	return &GuardedLLM{LLMService: svc, guard: guard}
}

// Complete runs one completion through the guard.
func (g *GuardedLLM) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	var out driven.Completion
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.LLMService.Complete(ctx, req)
		return err
	})
	return out, err
}
