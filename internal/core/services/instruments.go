package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/custodia-labs/docrag/internal/core/services"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// counter creates an Int64Counter on the global meter provider.
// A registration failure falls back to a no-op counter.
func counter(name, description string) metric.Int64Counter {
	c, err := otel.Meter(instrumentationName).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
