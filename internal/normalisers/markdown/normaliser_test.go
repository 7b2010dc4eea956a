package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, domain.ContentTypeMarkdown)
	assert.Contains(t, mimeTypes, "text/x-markdown")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestExtract_Empty(t *testing.T) {
	text, err := New().Extract(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading", "# Refund Policy\n\nBody text.", "Refund Policy\n\nBody text."},
		{"nested heading", "### Details", "Details"},
		{"bold and italic", "This is **very** *important* and __bold__.", "This is very important and bold."},
		{"underscore italic", "An _emphasised_ word in snake_case_name.", "An emphasised word in snake_case_name."},
		{"link", "See [the docs](https://example.com) now.", "See the docs now."},
		{"image keeps alt", "![diagram](img.png)", "diagram"},
		{"inline code keeps text", "Run `make build` first.", "Run make build first."},
		{"code fence keeps body", "```go\nfmt.Println(1)\n```", "fmt.Println(1)"},
		{"blockquote", "> quoted line", "quoted line"},
		{"bullets", "- one\n- two\n* three", "one\ntwo\nthree"},
		{"numbered", "1. first\n2) second", "first\nsecond"},
		{"horizontal rule", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"html tags", "<b>bold</b> text", "bold text"},
		{"collapses newlines", "a\n\n\n\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}

func TestExtract_Document(t *testing.T) {
	doc := "# Handbook\n\n## Leave\n\nEmployees get **25 days**. See [policy](p.md).\n"

	text, err := New().Extract(context.Background(), []byte(doc))

	require.NoError(t, err)
	assert.Equal(t, "Handbook\n\nLeave\n\nEmployees get 25 days. See policy.", text)
}
