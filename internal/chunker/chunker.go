// Package chunker splits section spans into token-budgeted chunks with
// sentence-aware overlap, ready for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinSpanChars int // Spans shorter than this (trimmed) are skipped.
	CountTokens  TokenCounter
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    600,
		ChunkOverlap: 100,
		MinSpanChars: 50,
		CountTokens:  EstimateTokens,
	}
}

func (c *Config) fillDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 600
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 100
	}
	if c.MinSpanChars <= 0 {
		c.MinSpanChars = 50
	}
	if c.CountTokens == nil {
		c.CountTokens = EstimateTokens
	}
}

// ChunkSpans turns section spans into chunks. Chunk IDs are
// "{paperID}_chunk_{n}" with n zero-based and monotone across the whole
// document, so later chunks always carry later numbers regardless of
// which span produced them.
func ChunkSpans(spans []paper.SectionSpan, paperID string, cfg Config) []paper.Chunk {
	cfg.fillDefaults()

	var chunks []paper.Chunk
	next := 0

	for _, span := range spans {
		if len(strings.TrimSpace(span.Text)) < cfg.MinSpanChars {
			continue
		}
		for _, text := range chunkText(span.Text, cfg) {
			chunks = append(chunks, paper.Chunk{
				ID:      fmt.Sprintf("%s_chunk_%d", paperID, next),
				PaperID: paperID,
				Section: span.Section,
				Page:    span.Page,
				Text:    text,
			})
			next++
		}
	}

	return chunks
}

// chunkText splits one span's text into pieces of at most ChunkSize
// tokens, preferring sentence boundaries, falling back to word-level
// splitting for sentences that alone exceed the budget.
func chunkText(text string, cfg Config) []string {
	if cfg.CountTokens(text) <= cfg.ChunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	sentences := SplitSentences(text)

	var chunks []string
	var current []string
	currentTokens := 0

	for _, sentence := range sentences {
		sentenceTokens := cfg.CountTokens(sentence)

		// A sentence that alone exceeds the budget gets split by
		// words. Word-level pieces carry no overlap.
		if sentenceTokens > cfg.ChunkSize {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
				currentTokens = 0
			}

			var piece []string
			pieceTokens := 0
			for _, word := range strings.Fields(sentence) {
				wordTokens := cfg.CountTokens(word + " ")
				if pieceTokens+wordTokens > cfg.ChunkSize {
					if len(piece) > 0 {
						chunks = append(chunks, strings.Join(piece, " "))
					}
					piece = []string{word}
					pieceTokens = wordTokens
				} else {
					piece = append(piece, word)
					pieceTokens += wordTokens
				}
			}
			// The tail piece seeds the next chunk rather than closing.
			if len(piece) > 0 {
				current = piece
				currentTokens = pieceTokens
			}
			continue
		}

		if currentTokens+sentenceTokens > cfg.ChunkSize {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
			}
			overlap := overlapSentences(current, cfg)
			current = append(overlap, sentence)
			currentTokens = cfg.CountTokens(strings.Join(current, " "))
		} else {
			current = append(current, sentence)
			currentTokens += sentenceTokens
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// overlapSentences walks backward from the end of a closed chunk,
// taking whole sentences while they fit in the overlap budget. A
// boundary sentence larger than the budget yields zero overlap.
func overlapSentences(chunk []string, cfg Config) []string {
	var overlap []string
	tokens := 0

	for i := len(chunk) - 1; i >= 0; i-- {
		sentenceTokens := cfg.CountTokens(chunk[i])
		if tokens+sentenceTokens > cfg.ChunkOverlap {
			break
		}
		overlap = append([]string{chunk[i]}, overlap...)
		tokens += sentenceTokens
	}

	return overlap
}

// SplitSentences normalizes whitespace and splits on sentence
// boundaries: a terminator (. ! ?) followed by whitespace followed by
// an uppercase letter. Abbreviations like "e.g." survive because the
// next character is lowercase.
func SplitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(normalized)-1; i++ {
		c := normalized[i]
		if (c == '.' || c == '!' || c == '?') && normalized[i+1] == ' ' {
			r, _ := utf8.DecodeRuneInString(normalized[i+2:])
			if unicode.IsUpper(r) {
				sentences = append(sentences, normalized[start:i+1])
				start = i + 2
			}
		}
	}
	if s := strings.TrimSpace(normalized[start:]); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
