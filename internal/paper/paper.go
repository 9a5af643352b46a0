// Package paper holds the core data types of the ingestion and
// retrieval pipeline: extracted pages, section spans, chunks, and
// the citation records built from retrieved chunks.
package paper

// PageText is the extracted text of a single page.
type PageText struct {
	Number   int    // 1-based page number
	Text     string // raw extracted text
	Headings []Heading
}

// Heading is a detected section heading within a page's text.
type Heading struct {
	Offset int    // byte offset of the heading line in PageText.Text
	Label  string // normalized section label, e.g. "Methodology"
}

// SectionSpan is a contiguous run of page text attributed to one section.
// Spans partition each page's text in document order.
type SectionSpan struct {
	Section string
	Page    int
	Text    string
}

// Chunk is a token-budgeted slice of a section span, ready for embedding.
type Chunk struct {
	ID      string `json:"chunk_id"` // "{paper_id}_chunk_{n}", n monotone across the document
	PaperID string `json:"paper_id"`
	Section string `json:"section"`
	Page    int    `json:"page"`
	Text    string `json:"text"`
}

// RetrievedChunk is a chunk returned by vector search with its
// similarity score (higher is better).
type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Citation points a reader at the source location of retrieved context.
// Within one answer, citations are unique by (paper, page, section) and
// sorted ascending by page.
type Citation struct {
	PaperID      string `json:"paper_id"`
	Page         int    `json:"page"`
	Section      string `json:"section"`
	ChunkPreview string `json:"chunk_preview"`
}
