package cli

import (
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/watch"
)

var (
	watchInitial     bool
	watchDebounce    time.Duration
	watchConcurrency int
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents as they appear in a directory",
	Long: `Watches a directory and uploads supported files when they are created or
modified. Rewriting a file replaces the document ingested from it; removing
the file deletes that document. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "also ingest files already in the directory")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is ingested")
	watchCmd.Flags().IntVar(&watchConcurrency, "concurrency", 4, "maximum parallel uploads")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	var mu sync.Mutex
	w, err := watch.New(ingestionService, watch.Config{
		Dir:         args[0],
		Debounce:    watchDebounce,
		Concurrency: watchConcurrency,
		Initial:     watchInitial,
		OnResult: func(r watch.Result) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case r.Err != nil:
				cmd.Printf("Failed   %s: %v\n", r.Change.Path, r.Err)
			case r.Document != nil:
				cmd.Printf("Uploaded %s: %s (%d chunks)\n", r.Change.Path, r.Document.DocumentID, r.Document.ChunkCount)
			case r.Replaced != "":
				cmd.Printf("Deleted  %s: %s\n", r.Change.Path, r.Replaced)
			}
		},
	})
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
