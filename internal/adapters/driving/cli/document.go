package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// errInconsistent makes "verify" exit non-zero when the stores diverge.
var errInconsistent = errors.New("document store and vector index diverge")

var (
	listJSON   bool
	verifyJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents",
	Long: `Removes each document's vectors from the index, then its stored objects.
Deleting an unknown document succeeds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the document store against the vector index",
	Long: `Reports documents whose vectors are missing from the index and vectors
whose document metadata is missing from the store. Nothing is repaired.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "output the report as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if listJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents uploaded.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].DocumentID)
		cmd.Printf("    File: %s (%s, %d bytes)\n", docs[i].Filename, docs[i].ContentType, docs[i].FileSizeBytes)
		cmd.Printf("    Uploaded: %s\n", docs[i].UploadTimestamp.Local().Format(time.DateTime))
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return printJSON(cmd, doc)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	for _, id := range args {
		if err := ingestionService.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}

	report, err := documentService.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}

	if verifyJSON {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		cmd.Printf("Documents:         %d\n", report.Documents)
		cmd.Printf("Indexed documents: %d\n", report.IndexedDocuments)
		for _, id := range report.MissingVectors {
			cmd.Printf("  missing vectors:  %s\n", id)
		}
		for _, id := range report.OrphanedVectors {
			cmd.Printf("  orphaned vectors: %s\n", id)
		}
		if report.Consistent() {
			cmd.Println("Store and index are consistent.")
		}
	}

	if !report.Consistent() {
		return errInconsistent
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
