// Package retry applies a bounded exponential backoff policy to remote calls.
//
// A Policy never returns an error past its boundary on its own: Do returns a
// Result tagged Succeeded, Exhausted or Aborted, and the call site decides
// which domain error that becomes.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Status tags the outcome of Do.
type Status int

const (
	// Succeeded means an attempt returned nil.
	Succeeded Status = iota

	// Exhausted means every attempt failed with a retryable error.
	Exhausted

	// Aborted means an attempt failed with a non-retryable error or the
	// caller's context ended.
	Aborted
)

// String returns the string representation.
func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Do.
type Result struct {
	// Status is the outcome.
	Status Status

	// Attempts is the number of times the operation ran.
	Attempts int

	// Err is the last error seen. Nil when Status is Succeeded.
	Err error
}

// OK returns true when the operation succeeded.
func (r Result) OK() bool {
	return r.Status == Succeeded
}

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt. It doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps a single delay. Zero means no cap.
	MaxDelay time.Duration

	// AttemptTimeout bounds each attempt. Zero means no per-attempt timeout.
	// An attempt that times out is retryable.
	AttemptTimeout time.Duration

	// Jitter returns the random component added to a delay, given BaseDelay.
	// Nil uses FullJitter.
	Jitter func(base time.Duration) time.Duration

	// Retryable classifies errors. Nil retries every error.
	Retryable func(err error) bool

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// FullJitter returns a uniformly random duration in [0, base).
func FullJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return rand.N(base)
}

// NoJitter always returns zero.
func NoJitter(time.Duration) time.Duration {
	return 0
}

// Delay returns the wait after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1) plus jitter, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = FullJitter
	}
	d += jitter(p.BaseDelay)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// caller's context ends, or MaxAttempts is reached.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) Result {
	attempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Status: Aborted, Attempts: attempt - 1, Err: errors.Join(err, lastErr)}
		}

		err := p.runAttempt(ctx, op)
		if err == nil {
			return Result{Status: Succeeded, Attempts: attempt}
		}
		lastErr = err

		// The caller gave up; a per-attempt deadline does not count here.
		if ctx.Err() != nil {
			return Result{Status: Aborted, Attempts: attempt, Err: err}
		}
		if !p.retryable(err) {
			return Result{Status: Aborted, Attempts: attempt, Err: err}
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return Result{Status: Aborted, Attempts: attempt, Err: errors.Join(err, lastErr)}
		}
	}
	return Result{Status: Exhausted, Attempts: attempts, Err: lastErr}
}

func (p Policy) runAttempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

func (p Policy) retryable(err error) bool {
	// Per-attempt timeouts are treated like any other transient failure.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
