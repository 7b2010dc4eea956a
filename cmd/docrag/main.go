// Command docrag uploads documents, indexes them and answers questions
// from their content.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/env"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/gcs"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/docrag/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

var log = logger.For("main")

func main() {
	if err := env.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx, cli.App{Configure: configure, Build: build}); err != nil {
		stop()
		os.Exit(1)
	}
}

// configure opens the config store named by --config and layers the
// DOCRAG_ environment on top.
func configure(opts cli.Options) (driven.ConfigStore, driving.SettingsService, error) {
	var (
		base driven.ConfigStore
		err  error
	)
	switch opts.ConfigPath {
	case ":memory:":
		base = memory.NewConfigStore()
	case "":
		base, err = file.NewConfigStore("")
	default:
		base, err = file.NewConfigStoreAt(opts.ConfigPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}

	store := env.NewOverlay(base, env.DefaultPrefix)
	return store, services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

// build wires adapters and services from the effective configuration.
func build(ctx context.Context, store driven.ConfigStore) (_ *cli.Services, err error) {
	cfg, err := services.LoadConfig(store)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		closers = nil
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: "docrag",
		Version:     version,
		TraceFile:   store.GetString("telemetry.trace_file"),
	})
	if err != nil {
		return nil, fmt.Errorf("initialising telemetry: %w", err)
	}
	closers = append(closers, func() error { return shutdownTelemetry(context.Background()) })

	providers, err := ai.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error { providers.Close(); return nil })
	for _, w := range providers.Warnings {
		log.Warn("%s", w)
	}

	embedder := services.NewEmbeddingClient(
		providers.EmbeddingService,
		cfg.Embedding,
		services.NewPolicy(cfg.Retry.Embedding, cfg.Embedding.Timeout),
	)

	docs, records, err := openStorage(ctx, cfg.Storage, &closers)
	if err != nil {
		return nil, err
	}

	index, err := openIndex(ctx, cfg.Index, embedder.Dimensions(), records)
	if err != nil {
		return nil, err
	}
	closers = append(closers, index.Close)

	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	retrieval := services.NewRetrievalService(embedder, index, providers.LLMService, cfg)
	prompts, err := file.NewPromptStore("")
	if err != nil {
		log.Warn("prompt store unavailable, using built-in prompts: %v", err)
	} else {
		retrieval.SetPromptStore(prompts)
	}

	return &cli.Services{
		Ingestion: services.NewIngestionService(normalisers.NewDefaultRegistry(), chunks, embedder, index, docs, cfg),
		Retrieval: retrieval,
		Document:  services.NewDocumentService(docs, index),
		Close:     closeAll,
	}, nil
}

// openStorage returns the document store and, for sqlite, the vector
// record store the HNSW index rebuilds from.
func openStorage(
	ctx context.Context,
	cfg domain.StorageSettings,
	closers *[]func() error,
) (driven.DocumentStore, hnsw.RecordStore, error) {
	switch cfg.Backend {
	case domain.StorageBackendMemory:
		return memory.NewDocumentStore(), nil, nil
	case domain.StorageBackendGCS:
		s, err := gcs.NewDocumentStore(ctx, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, nil, err
		}
		*closers = append(*closers, s.Close)
		return s, nil, nil
	default:
		s, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		*closers = append(*closers, s.Close)
		log.Debug("sqlite store at %s", s.Path())
		return s.DocumentStore(), s.VectorStore(), nil
	}
}

func openIndex(
	ctx context.Context,
	cfg domain.IndexSettings,
	dimension int,
	records hnsw.RecordStore,
) (driven.VectorIndex, error) {
	if cfg.Backend == domain.IndexBackendQdrant {
		ix, err := qdrant.New(ctx, qdrant.Config{
			URL:            cfg.QdrantURL,
			APIKey:         cfg.QdrantAPIKey,
			Collection:     cfg.QdrantCollection,
			Dimension:      dimension,
			M:              cfg.M,
			EfConstruction: cfg.EfConstruction,
			EfSearch:       cfg.EfSearch,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return ix, nil
	}

	hcfg := hnsw.Config{
		Dimension:      dimension,
		M:              cfg.M,
		EfConstruction: cfg.EfConstruction,
		EfSearch:       cfg.EfSearch,
	}
	if records == nil {
		return hnsw.New(hcfg)
	}
	hcfg.Store = records
	return hnsw.Open(ctx, hcfg)
}
