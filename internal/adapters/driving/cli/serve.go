package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI agents can upload documents,
ask questions and manage the knowledge base.

By default the server communicates over stdio using JSON-RPC. Use --port to
serve streamable HTTP instead. The endpoint is /mcp and /healthz reports
liveness.

Tools: upload_document, ask, list_documents, delete_document, search_documents.
Resources: docrag://documents lists every document and docrag://documents/{id}
returns one document's metadata.

Examples:
  # Stdio mode (default, for desktop agents)
  docrag serve

  # HTTP mode (for MCP Inspector, remote access)
  docrag serve --port 8080

Agent configuration:
  {
    "mcpServers": {
      "docrag": {
        "command": "/path/to/docrag",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if err := ensureServices(cmd); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Ingestion: ingestionService,
		Retrieval: retrievalService,
		Document:  documentService,
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s%s\n", addr, mcp.EndpointPath)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
