package driven

import "context"

// Extractor converts raw document bytes into plain text.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the document's plain text.
	// An empty document yields "" and no error.
	Extract(ctx context.Context, content []byte) (string, error)
}

// ExtractorRegistry selects an extractor by content type.
type ExtractorRegistry interface {
	// Register adds an extractor.
	Register(e Extractor)

	// Extract runs the highest-priority extractor for contentType.
	// Fails with domain.ErrUnsupportedFormat when none is registered.
	Extract(ctx context.Context, content []byte, contentType string) (string, error)

	// SupportedMIMETypes returns every MIME type with a registered extractor.
	SupportedMIMETypes() []string
}
