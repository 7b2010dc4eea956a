// Package telemetry installs the OpenTelemetry tracer provider.
//
// Tracing is off unless a trace file is configured; the services then fall
// back to the global no-op provider. Spans are written as JSON lines by the
// stdout exporter, which suits a CLI that exits after each command.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/custodia-labs/docrag/internal/logger"
)

var log = logger.For("telemetry")

// Options configures Init.
type Options struct {
	// ServiceName is reported as service.name (default: docrag).
	ServiceName string

	// Version is reported as service.version.
	Version string

	// TraceFile receives spans. Empty disables tracing.
	TraceFile string

	// Writer receives spans instead of TraceFile. Used by tests.
	Writer io.Writer
}

// Shutdown flushes pending spans and releases the exporter.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs a global tracer provider when tracing is configured.
// The returned Shutdown is never nil.
func Init(ctx context.Context, opts Options) (Shutdown, error) {
	w := opts.Writer
	var file *os.File
	if w == nil {
		if strings.TrimSpace(opts.TraceFile) == "" {
			return noopShutdown, nil
		}
		if err := os.MkdirAll(filepath.Dir(opts.TraceFile), 0700); err != nil {
			return noopShutdown, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(opts.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return noopShutdown, fmt.Errorf("open trace file: %w", err)
		}
		file, w = f, f
	}

	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		name = "docrag"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(opts.Version),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing): %v", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if file != nil {
			file.Close()
		}
		return noopShutdown, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Debug("tracing enabled for %s", name)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if file != nil {
			err = errors.Join(err, file.Close())
		}
		return err
	}, nil
}
