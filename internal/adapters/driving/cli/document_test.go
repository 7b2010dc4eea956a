package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func testDocuments() []domain.DocumentMetadata {
	return []domain.DocumentMetadata{
		{
			DocumentID:      "doc-2",
			Filename:        "faq.md",
			UploadTimestamp: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
			FileSizeBytes:   512,
			ContentType:     domain.ContentTypeMarkdown,
			ChunkCount:      1,
		},
		{
			DocumentID:      "doc-1",
			Filename:        "policy.pdf",
			UploadTimestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
			FileSizeBytes:   20480,
			ContentType:     domain.ContentTypePDF,
			ChunkCount:      7,
		},
	}
}

func TestListCmd(t *testing.T) {
	t.Run("prints documents", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.documents = testDocuments()

		out, err := runCLI(t, nil, "list")

		require.NoError(t, err)
		assert.Contains(t, out, "doc-2")
		assert.Contains(t, out, "File: policy.pdf (application/pdf, 20480 bytes)")
		assert.Contains(t, out, "Chunks: 7")
		assert.Contains(t, out, "Total: 2 documents")
		assert.Less(t, strings.Index(out, "doc-2"), strings.Index(out, "doc-1"))
	})

	t.Run("empty", func(t *testing.T) {
		setupTestServices(t)

		out, err := runCLI(t, nil, "list")

		require.NoError(t, err)
		assert.Contains(t, out, "No documents uploaded.")
	})

	t.Run("json", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.documents = testDocuments()

		out, err := runCLI(t, nil, "list", "--json")

		require.NoError(t, err)
		assert.Contains(t, out, `"document_id": "doc-1"`)
		assert.Contains(t, out, `"chunk_count": 7`)
	})

	t.Run("failure", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.err = errors.New("bucket unreachable")

		_, err := runCLI(t, nil, "list")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket unreachable")
	})
}

func TestShowCmd(t *testing.T) {
	t.Run("prints metadata", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.documents = testDocuments()

		out, err := runCLI(t, nil, "show", "doc-1")

		require.NoError(t, err)
		assert.Contains(t, out, `"filename": "policy.pdf"`)
	})

	t.Run("unknown document", func(t *testing.T) {
		setupTestServices(t)

		_, err := runCLI(t, nil, "show", "nope")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteCmd(t *testing.T) {
	t.Run("deletes each document", func(t *testing.T) {
		env := setupTestServices(t)

		out, err := runCLI(t, nil, "delete", "doc-1", "doc-2")

		require.NoError(t, err)
		assert.Equal(t, []string{"doc-1", "doc-2"}, env.ingestion.deleted)
		assert.Contains(t, out, "Deleted doc-1")
		assert.Contains(t, out, "Deleted doc-2")
	})

	t.Run("requires an id", func(t *testing.T) {
		setupTestServices(t)

		_, err := runCLI(t, nil, "delete")

		assert.Error(t, err)
	})

	t.Run("vector delete failure stops", func(t *testing.T) {
		env := setupTestServices(t)
		env.ingestion.deleteErr = domain.ErrVectorDeleteFailed

		_, err := runCLI(t, nil, "delete", "doc-1", "doc-2")

		assert.ErrorIs(t, err, domain.ErrVectorDeleteFailed)
		assert.Empty(t, env.ingestion.deleted)
	})
}

func TestVerifyCmd(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.report = &domain.ConsistencyReport{Documents: 2, IndexedDocuments: 2}

		out, err := runCLI(t, nil, "verify")

		require.NoError(t, err)
		assert.Contains(t, out, "Store and index are consistent.")
	})

	t.Run("divergent exits with error", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.report = &domain.ConsistencyReport{
			Documents:        2,
			IndexedDocuments: 2,
			MissingVectors:   []string{"doc-1"},
			OrphanedVectors:  []string{"doc-9"},
		}

		out, err := runCLI(t, nil, "verify")

		assert.ErrorIs(t, err, errInconsistent)
		assert.Contains(t, out, "missing vectors:  doc-1")
		assert.Contains(t, out, "orphaned vectors: doc-9")
	})

	t.Run("json", func(t *testing.T) {
		env := setupTestServices(t)
		env.document.report = &domain.ConsistencyReport{Documents: 1, IndexedDocuments: 1}

		out, err := runCLI(t, nil, "verify", "--json")

		require.NoError(t, err)
		assert.Contains(t, out, `"indexed_documents": 1`)
	})
}
