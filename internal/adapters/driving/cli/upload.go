package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	uploadName string
	uploadType string
	uploadJSON bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload and index documents",
	Long: `Uploads one or more documents. Each is extracted, chunked, embedded and
indexed; files are processed concurrently and independently, so one failure
does not affect the others.

Supported formats: PDF, DOCX, markdown and plain text.

With no file arguments the document is read from stdin and --name is required:
  cat notes.md | docrag upload --name notes.md`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "file name for a document read from stdin")
	uploadCmd.Flags().StringVar(&uploadType, "type", "", "MIME type (detected from the file name when empty)")
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	reqs, err := uploadRequests(cmd, args)
	if err != nil {
		return err
	}
	if err := ensureServices(cmd); err != nil {
		return err
	}

	results := ingestionService.UploadMany(cmd.Context(), reqs)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if uploadJSON {
		if err := outputUploadJSON(cmd, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Err != nil {
				cmd.Printf("Failed   %s: %v\n", r.Filename, r.Err)
				continue
			}
			cmd.Printf("Uploaded %s: %s (%d chunks)\n", r.Filename, r.Document.DocumentID, r.Document.ChunkCount)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

// uploadRequests reads the named files, or stdin when there are none.
func uploadRequests(cmd *cobra.Command, args []string) ([]domain.UploadRequest, error) {
	if len(args) == 0 {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return nil, errors.New("no files given; pass file paths or pipe a document with --name")
		}
		if uploadName == "" {
			return nil, errors.New("--name is required when reading from stdin")
		}
		content, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []domain.UploadRequest{{Filename: uploadName, ContentType: uploadType, Content: content}}, nil
	}

	reqs := make([]domain.UploadRequest, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		reqs = append(reqs, domain.UploadRequest{
			Filename:    filepath.Base(path),
			ContentType: uploadType,
			Content:     content,
		})
	}
	return reqs, nil
}

type uploadResultJSON struct {
	Filename string                   `json:"filename"`
	Document *domain.DocumentMetadata `json:"document,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func outputUploadJSON(cmd *cobra.Command, results []domain.UploadResult) error {
	out := make([]uploadResultJSON, len(results))
	for i, r := range results {
		out[i] = uploadResultJSON{Filename: r.Filename, Document: r.Document}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
