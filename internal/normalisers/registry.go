package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/normalisers/docx"
	"github.com/custodia-labs/docrag/internal/normalisers/markdown"
	"github.com/custodia-labs/docrag/internal/normalisers/pdf"
	"github.com/custodia-labs/docrag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction to the highest-priority extractor
// registered for a content type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string][]driven.Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string][]driven.Extractor),
	}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	return r
}

// Register adds an extractor under each of its MIME types.
// Extractors for the same type are kept ordered by descending priority.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range e.SupportedMIMETypes() {
		key := domain.NormaliseContentType(mimeType)
		list := append(r.extractors[key], e)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.extractors[key] = list
	}
}

// Extract runs the preferred extractor for contentType and trims the result.
func (r *Registry) Extract(ctx context.Context, content []byte, contentType string) (string, error) {
	key := domain.NormaliseContentType(contentType)

	r.mu.RLock()
	list := r.extractors[key]
	r.mu.RUnlock()

	if len(list) == 0 {
		return "", fmt.Errorf("%w: no extractor for %q", domain.ErrUnsupportedFormat, contentType)
	}

	text, err := list[0].Extract(ctx, content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// SupportedMIMETypes returns the registered MIME types in sorted order.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for mimeType := range r.extractors {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}
