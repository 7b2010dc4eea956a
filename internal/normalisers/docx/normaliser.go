package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const documentPart = "word/document.xml"

// maxDocumentXML guards against zip bombs in word/document.xml.
const maxDocumentXML = 64 << 20

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.ContentTypeDOCX}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Generic MIME extractor
}

// Extract returns the text of word/document.xml, one line per paragraph.
// Paragraphs inside tables are included.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", nil
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", domain.ErrExtractionFailed, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: docx: open %s: %w", domain.ErrExtractionFailed, documentPart, err)
		}
		defer rc.Close()

		text, err := parseDocumentXML(io.LimitReader(rc, maxDocumentXML))
		if err != nil {
			return "", fmt.Errorf("%w: docx: %w", domain.ErrExtractionFailed, err)
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: docx: missing %s", domain.ErrExtractionFailed, documentPart)
}

// parseDocumentXML walks the WordprocessingML token stream. Text runs (w:t)
// are concatenated, w:tab and w:br become whitespace, and each closing w:p
// ends a line.
func parseDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		result  strings.Builder
		line    strings.Builder
		inText  bool
		started bool
	)

	flush := func() {
		if started {
			result.WriteString("\n")
		}
		result.WriteString(strings.TrimRight(line.String(), " \t"))
		line.Reset()
		started = true
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteString("\t")
			case "br", "cr":
				line.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		flush()
	}

	return strings.TrimSpace(result.String()), nil
}
