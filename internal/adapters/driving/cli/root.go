// Package cli implements the docrag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Options carries the root flags to the composition root.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// Verbose enables debug and info logging.
	Verbose bool
}

// Services are the document operations the commands run against.
type Services struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Document  driving.DocumentService

	// Close releases adapters. May be nil.
	Close func() error
}

// App wires the CLI to the rest of the program.
type App struct {
	// Configure opens the configuration. It runs before every command.
	Configure func(opts Options) (driven.ConfigStore, driving.SettingsService, error)

	// Build constructs the document services. It runs only for commands that
	// need them, so a broken provider setup can still be fixed with "config".
	Build func(ctx context.Context, store driven.ConfigStore) (*Services, error)
}

var (
	version = "dev"
	app     App
	opts    Options

	configStore     driven.ConfigStore
	settingsService driving.SettingsService

	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
	documentService  driving.DocumentService
	closeServices    func() error
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about your documents",
	Long: `docrag ingests PDF, DOCX, markdown and plain text documents into a vector
index and answers questions about them with cited sources.

Documents are split into overlapping chunks, embedded, and indexed. A question
retrieves the most similar chunks and a language model answers from them,
citing each chunk it used as [Source N].`,
	SilenceUsage:      true,
	PersistentPreRunE: configure,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.docrag/config.toml)")
}

// SetVersion sets the version reported by "docrag version".
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context, a App) error {
	app = a
	defer shutdown()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func configure(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)

	if configStore != nil || app.Configure == nil {
		return nil
	}
	store, settings, err := app.Configure(opts)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	configStore = store
	settingsService = settings
	return nil
}

// ensureServices builds the document services on first use.
func ensureServices(cmd *cobra.Command) error {
	if ingestionService != nil {
		return nil
	}
	if app.Build == nil || configStore == nil {
		return errors.New("document services not configured")
	}

	svc, err := app.Build(cmd.Context(), configStore)
	if err != nil {
		return fmt.Errorf("starting services: %w", err)
	}
	ingestionService = svc.Ingestion
	retrievalService = svc.Retrieval
	documentService = svc.Document
	closeServices = svc.Close
	return nil
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.For("cli").Warn("closing services: %v", err)
	}
	closeServices = nil
}
