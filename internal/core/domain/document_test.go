package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorID(t *testing.T) {
	assert.Equal(t, "abc#0", VectorID("abc", 0))
	assert.Equal(t, "abc#12", VectorID("abc", 12))
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "documents/abc/", DocumentPrefix("abc"))
	assert.Equal(t, "documents/abc/metadata.json", MetadataKey("abc"))
	assert.Equal(t, "documents/abc/chunks.json", ChunksKey("abc"))
	assert.Equal(t, "documents/abc/original.pdf", OriginalKey("abc", ".PDF"))
	assert.Equal(t, "documents/abc/original.md", OriginalKey("abc", "md"))
	assert.Equal(t, "documents/abc/original", OriginalKey("abc", ""))
}

func TestDocumentIDFromKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{"documents/abc/metadata.json", "abc", true},
		{"documents/abc/original.txt", "abc", true},
		{"documents/abc", "", false},
		{"documents//metadata.json", "", false},
		{"other/abc/metadata.json", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := DocumentIDFromKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestIsMetadataKey(t *testing.T) {
	assert.True(t, IsMetadataKey("documents/abc/metadata.json"))
	assert.False(t, IsMetadataKey("documents/abc/chunks.json"))
	assert.False(t, IsMetadataKey("metadata.json"))
}

func TestChunk_Len(t *testing.T) {
	c := Chunk{StartChar: 4000, EndChar: 9000}
	assert.Equal(t, 5000, c.Len())
}
