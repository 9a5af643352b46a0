package rag

import (
	"sort"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Previews are capped so citations stay skimmable.
const previewLen = 150

// BuildCitations derives citation records from retrieved chunks.
// Duplicates by (paper, page, section) collapse to the first
// occurrence, which is the highest-ranked one since chunks arrive in
// retrieval order. The result is sorted ascending by page, preserving
// retrieval order within a page. Empty input yields an empty slice.
func BuildCitations(chunks []paper.RetrievedChunk) []paper.Citation {
	type key struct {
		paperID string
		page    int
		section string
	}

	citations := make([]paper.Citation, 0, len(chunks))
	seen := make(map[key]bool)

	for _, c := range chunks {
		k := key{c.PaperID, c.Page, c.Section}
		if seen[k] {
			continue
		}
		seen[k] = true

		// Rune-based so multibyte text truncates on character
		// boundaries, never mid-rune.
		preview := c.Text
		if runes := []rune(preview); len(runes) > previewLen {
			preview = string(runes[:previewLen]) + "..."
		}

		citations = append(citations, paper.Citation{
			PaperID:      c.PaperID,
			Page:         c.Page,
			Section:      c.Section,
			ChunkPreview: preview,
		})
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Page < citations[j].Page
	})

	return citations
}
