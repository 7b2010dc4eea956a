package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// sourceMarker matches "[Source 2]" and "[Source 1, 3]".
var sourceMarker = regexp.MustCompile(`\[Sources?\s+(\d+(?:\s*,\s*\d+)*)\]`)

// loadPrompt reads a template from the store, falling back to the built-in one.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if p, err := store.Load(name); err == nil && p != "" {
			return p
		}
	}
	return driven.DefaultPrompts[name]
}

// buildContext renders hits as numbered source blocks, in the order given.
func buildContext(hits []domain.SearchHit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Source %d] (filename: %s, chunk: %d)\n%s",
			i+1, h.Record.Filename, h.Record.ChunkIndex, h.Record.ChunkText)
	}
	return strings.Join(blocks, "\n\n")
}

// parseCitations maps the source markers in an answer back to hits.
// Citations keep the order of first reference; unknown markers are ignored.
// An answer that cites nothing is attributed to every hit.
func parseCitations(answer string, hits []domain.SearchHit) []domain.Citation {
	seen := make(map[int]bool)
	var citations []domain.Citation

	for _, m := range sourceMarker.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > len(hits) || seen[n] {
				continue
			}
			seen[n] = true
			citations = append(citations, citationFor(n, hits[n-1]))
		}
	}

	if len(citations) == 0 {
		citations = make([]domain.Citation, len(hits))
		for i, h := range hits {
			citations[i] = citationFor(i+1, h)
		}
	}
	return citations
}

func citationFor(marker int, h domain.SearchHit) domain.Citation {
	return domain.Citation{
		Marker:     marker,
		Filename:   h.Record.Filename,
		DocumentID: h.Record.DocumentID,
		ChunkIndex: h.Record.ChunkIndex,
		ChunkText:  h.Record.ChunkText,
		Score:      h.Score,
	}
}
