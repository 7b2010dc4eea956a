package services

import (
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/retry"
)

// NewPolicy builds a retry policy from configuration.
// Only transient errors are retried; per-attempt timeouts always are.
func NewPolicy(settings domain.RetrySettings, attemptTimeout time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts:    settings.Attempts,
		BaseDelay:      settings.BaseDelay,
		MaxDelay:       settings.MaxDelay,
		AttemptTimeout: attemptTimeout,
		Jitter:         retry.FullJitter,
		Retryable:      domain.IsTransient,
	}
}

// indexPolicy retries transient vector index failures. Inserts are idempotent
// per vector ID and deletes per document, so repeating either is safe.
func indexPolicy(settings domain.RetrySettings) retry.Policy {
	return NewPolicy(settings, 0)
}

// storePolicy retries every store failure except caller mistakes.
func storePolicy(settings domain.RetrySettings) retry.Policy {
	p := NewPolicy(settings, 0)
	p.Retryable = func(err error) bool {
		return !domain.IsInputError(err)
	}
	return p
}
