package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.IsType(t, &Extractor{}, extractor)
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{domain.ContentTypePlain}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{"empty", nil, ""},
		{"whitespace only", []byte("  \n\t"), ""},
		{"simple", []byte("Hello, world."), "Hello, world."},
		{"trims", []byte("\n\n  Refund policy applies.  \n"), "Refund policy applies."},
		{"bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Title")...), "Title"},
		{"crlf normalised", []byte("line one\r\nline two\rline three"), "line one\nline two\nline three"},
		{"invalid utf8 replaced", []byte{'a', 0xff, 'b'}, "a�b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := New().Extract(context.Background(), tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}
