package domain

import (
	"path/filepath"
	"strings"
)

// Supported MIME types for text extraction.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePlain    = "text/plain"
	ContentTypeMarkdown = "text/markdown"
)

var extensionContentTypes = map[string]string{
	".pdf":      ContentTypePDF,
	".docx":     ContentTypeDOCX,
	".txt":      ContentTypePlain,
	".text":     ContentTypePlain,
	".md":       ContentTypeMarkdown,
	".markdown": ContentTypeMarkdown,
}

// DetectContentType returns the MIME type for a filename based on its extension.
// Returns an empty string when the extension is not supported.
func DetectContentType(filename string) string {
	return extensionContentTypes[strings.ToLower(filepath.Ext(filename))]
}

// NormaliseContentType strips parameters (e.g. "; charset=utf-8") and case
// from a MIME type.
func NormaliseContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsSupportedContentType reports whether text can be extracted from the type.
func IsSupportedContentType(contentType string) bool {
	switch NormaliseContentType(contentType) {
	case ContentTypePDF, ContentTypeDOCX, ContentTypePlain, ContentTypeMarkdown:
		return true
	default:
		return false
	}
}

// ExtensionFor returns the extension used when storing an original upload.
// The filename's own extension wins; otherwise one is derived from the type.
func ExtensionFor(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	switch NormaliseContentType(contentType) {
	case ContentTypePDF:
		return "pdf"
	case ContentTypeDOCX:
		return "docx"
	case ContentTypeMarkdown:
		return "md"
	case ContentTypePlain:
		return "txt"
	default:
		return ""
	}
}
