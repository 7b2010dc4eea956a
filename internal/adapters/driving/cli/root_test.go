package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/core/services"
)

// resetRoot clears package state touched by the composition hooks.
func resetRoot(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		ingestionService = nil
		retrievalService = nil
		documentService = nil
		configStore = nil
		settingsService = nil
		closeServices = nil
		app = App{}
		resetFlags(rootCmd)
	})
}

func TestRoot_BuildsServicesLazily(t *testing.T) {
	resetRoot(t)
	store := memory.NewConfigStore()
	var gotOpts Options
	builds, closes := 0, 0

	app = App{
		Configure: func(o Options) (driven.ConfigStore, driving.SettingsService, error) {
			gotOpts = o
			return store, services.NewSettingsService(store, nil), nil
		},
		Build: func(_ context.Context, s driven.ConfigStore) (*Services, error) {
			builds++
			assert.Same(t, store, s)
			return &Services{
				Ingestion: &mockIngestionService{},
				Retrieval: &mockRetrievalService{},
				Document:  &mockDocumentService{},
				Close:     func() error { closes++; return nil },
			}, nil
		},
	}

	_, err := runCLI(t, nil, "--config", "/tmp/docrag.yaml", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docrag.yaml", gotOpts.ConfigPath)
	assert.Equal(t, 0, builds, "config commands must not build document services")

	_, err = runCLI(t, nil, "list")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	shutdown()
	assert.Equal(t, 1, closes)
}

func TestRoot_ConfigureFailure(t *testing.T) {
	resetRoot(t)
	app = App{
		Configure: func(Options) (driven.ConfigStore, driving.SettingsService, error) {
			return nil, nil, errors.New("bad toml")
		},
	}

	_, err := runCLI(t, nil, "config", "path")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration: bad toml")
}

func TestRoot_BuildFailure(t *testing.T) {
	resetRoot(t)
	store := memory.NewConfigStore()
	app = App{
		Configure: func(Options) (driven.ConfigStore, driving.SettingsService, error) {
			return store, nil, nil
		},
		Build: func(context.Context, driven.ConfigStore) (*Services, error) {
			return nil, errors.New("qdrant unreachable")
		},
	}

	_, err := runCLI(t, nil, "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting services: qdrant unreachable")
}

func TestRoot_VerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}
