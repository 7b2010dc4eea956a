package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	askTopK      int
	askThreshold float64
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from uploaded documents",
	Long: `Retrieves the chunks most similar to the question and asks the language
model to answer from them. The answer cites chunks as [Source N]; the cited
sources are listed after it.

When no chunk reaches the similarity threshold the model is not called and
docrag reports that nothing relevant was found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "maximum number of chunks to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "minimum similarity score (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	answer, err := retrievalService.Query(cmd.Context(), question, queryOptions(cmd, askTopK, askThreshold))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) == 0 {
		return nil
	}

	cmd.Println()
	cmd.Println("Sources:")
	for _, c := range answer.Citations {
		cmd.Printf("  [%d] %s (chunk %d, score %.2f)\n", c.Marker, c.Filename, c.ChunkIndex, c.Score)
	}
	return nil
}

// queryOptions builds retrieval options. The threshold is only sent when the
// flag was given, so 0 can be requested explicitly.
func queryOptions(cmd *cobra.Command, topK int, threshold float64) domain.QueryOptions {
	opts := domain.QueryOptions{TopK: topK}
	if cmd.Flags().Changed("threshold") {
		t := threshold
		opts.Threshold = &t
	}
	return opts
}
