package chunker

import "strings"

// TokenCounter reports the approximate token count of a string. The
// chunker takes it as a collaborator so deployments can plug in an
// exact tokenizer for their embedding model.
type TokenCounter func(text string) int

// EstimateTokens gives a rough token count using a words-based heuristic.
// This is intentionally simple — exact tokenization is not required for
// chunking.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 1.33 tokens per word for English text.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
