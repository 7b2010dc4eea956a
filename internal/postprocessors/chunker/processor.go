// Package chunker splits extracted text into overlapping chunks that prefer
// to end on a paragraph or sentence boundary.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 4000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 800

// separators are tried in order; the first one found near the window end wins.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", " "}

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into chunks with a fixed size and overlap.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the configured chunk size.
func (p *Processor) Size() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text using the processor's size and overlap.
func (p *Processor) Chunk(text string) ([]domain.Chunk, error) {
	return Chunk(text, p.chunkSize, p.overlap)
}

// Chunk splits text into windows of size characters with overlap characters
// shared between neighbours. Offsets are rune positions.
//
// A window that would end mid-text is pulled back to just after the nearest
// separator within the last size/5 characters. The next window starts overlap
// characters before the actual cut, so overlaps follow real boundaries.
func Chunk(text string, size, overlap int) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, size, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []domain.Chunk{{Index: 0, Text: text, StartChar: 0, EndChar: n}}, nil
	}

	window := size / 5
	chunks := make([]domain.Chunk, 0, n/(size-overlap)+1)

	start := 0
	for {
		end := start + size
		if end >= n {
			end = n
		} else {
			end = breakPoint(runes, start, end, window)
		}

		chunks = append(chunks, domain.Chunk{
			Index:     len(chunks),
			Text:      string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// breakPoint returns the cut position for a window [start, end). It looks
// back at most window runes for a separator and cuts just after it.
func breakPoint(runes []rune, start, end, window int) int {
	lo := max(end-window, start+1)
	for _, sep := range separators {
		sr := []rune(sep)
		for i := end - len(sr); i >= start && i+len(sr) >= lo; i-- {
			if hasPrefixAt(runes, i, sr) {
				return i + len(sr)
			}
		}
	}
	return end
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
