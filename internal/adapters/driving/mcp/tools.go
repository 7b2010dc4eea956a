package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// UploadInput is the input schema for the upload_document tool.
type UploadInput struct {
	Filename      string `json:"filename" jsonschema:"file name of the document, used to detect its format"`
	Content       string `json:"content,omitempty" jsonschema:"document text, for plain text and markdown"`
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"base64 encoded document bytes, for PDF and DOCX"`
	ContentType   string `json:"content_type,omitempty" jsonschema:"MIME type; detected from the file name when empty"`
}

// DocumentOutput describes a committed document.
type DocumentOutput struct {
	DocumentID      string `json:"document_id"`
	Filename        string `json:"filename"`
	UploadTimestamp string `json:"upload_timestamp"`
	FileSizeBytes   int64  `json:"file_size_bytes"`
	TextLength      int    `json:"text_length"`
	ContentType     string `json:"content_type"`
	ChunkCount      int    `json:"chunk_count"`
	EmbeddingModel  string `json:"embedding_model"`
	VectorDimension int    `json:"vector_dimension"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string   `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to retrieve"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity between 0 and 1"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Found     bool             `json:"found"`
	Citations []CitationOutput `json:"citations"`
}

// CitationOutput is one source backing an answer.
type CitationOutput struct {
	Source     int     `json:"source"`
	Filename   string  `json:"filename"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

// ListInput is the (empty) input schema for the list_documents tool.
type ListInput struct{}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DeleteInput is the input schema for the delete_document tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier returned by upload_document"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"text to find similar chunks for"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity between 0 and 1"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single matched chunk.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Relevance  string  `json:"relevance"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_document",
		Description: "Upload a document (plain text, markdown, PDF or DOCX) and index it for question answering",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the uploaded documents, citing the chunks used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents, newest first",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and its indexed chunks",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Find the chunks most similar to a query without generating an answer",
	}, s.handleSearch)
}

// handleUpload handles the upload_document tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	content, err := decodeContent(input)
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	meta, err := s.ports.Ingestion.Upload(ctx, domain.UploadRequest{
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Content:     content,
	})
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	log.Info("uploaded %s as %s (%d chunks)", meta.Filename, meta.DocumentID, meta.ChunkCount)
	return nil, documentOutput(*meta), nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.QueryOptions{TopK: input.TopK, Threshold: input.Threshold}
	answer, err := s.ports.Retrieval.Query(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		Found:     answer.Found,
		Citations: make([]CitationOutput, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			Source:     c.Marker,
			Filename:   c.Filename,
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			ChunkText:  c.ChunkText,
			Score:      c.Score,
		}
	}

	return nil, output, nil
}

// handleList handles the list_documents tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(docs[i])
	}

	return nil, output, nil
}

// handleDelete handles the delete_document tool invocation.
func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.ports.Ingestion.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: true}, nil
}

// handleSearch handles the search_documents tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.QueryOptions{TopK: input.TopK, Threshold: input.Threshold}
	hits, err := s.ports.Retrieval.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = SearchResultOutput{
			DocumentID: h.Record.DocumentID,
			Filename:   h.Record.Filename,
			ChunkIndex: h.Record.ChunkIndex,
			Content:    h.Record.ChunkText,
			Score:      h.Score,
			Relevance:  string(h.Relevance()),
		}
	}

	return nil, output, nil
}

// decodeContent returns the upload bytes. Exactly one of content and
// content_base64 must be set.
func decodeContent(input UploadInput) ([]byte, error) {
	switch {
	case input.Content != "" && input.ContentBase64 != "":
		return nil, fmt.Errorf("%w: set either content or content_base64, not both", domain.ErrInvalidInput)
	case input.ContentBase64 != "":
		data, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: content_base64: %w", domain.ErrInvalidInput, err)
		}
		return data, nil
	default:
		return []byte(input.Content), nil
	}
}

func documentOutput(meta domain.DocumentMetadata) DocumentOutput {
	return DocumentOutput{
		DocumentID:      meta.DocumentID,
		Filename:        meta.Filename,
		UploadTimestamp: meta.UploadTimestamp.UTC().Format(time.RFC3339),
		FileSizeBytes:   meta.FileSizeBytes,
		TextLength:      meta.TextLength,
		ContentType:     meta.ContentType,
		ChunkCount:      meta.ChunkCount,
		EmbeddingModel:  meta.EmbeddingModel,
		VectorDimension: meta.VectorDimension,
	}
}
