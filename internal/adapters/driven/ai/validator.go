package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

var log = logger.For("ai")

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds one validation round trip.
const DefaultPingTimeout = 5 * time.Second

// ConfigValidator builds the unguarded adapter for a settings block and
// pings it once. Unconfigured settings pass without a network call.
type ConfigValidator struct {
	Timeout time.Duration
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{Timeout: DefaultPingTimeout}
}

func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	return v.ping(string(settings.Provider), func(ctx context.Context) (pinger, error) {
		return CreateEmbeddingService(ctx, settings)
	})
}

func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	return v.ping(string(settings.Provider), func(ctx context.Context) (pinger, error) {
		return CreateLLMService(ctx, settings)
	})
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func (v *ConfigValidator) ping(provider string, create func(context.Context) (pinger, error)) error {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc, err := create(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	start := time.Now()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	log.Debug("%s reachable in %s", provider, time.Since(start).Round(time.Millisecond))
	return nil
}
