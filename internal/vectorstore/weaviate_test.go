package vectorstore

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCapChunkText(t *testing.T) {
	short := "fits within the limit"
	if got := capChunkText(short); got != short {
		t.Errorf("expected short text untouched, got %q", got)
	}

	// Multibyte text must be capped on character boundaries so the
	// stored copy stays valid UTF-8.
	long := "ab" + strings.Repeat("界", metadataTextLimit)
	capped := capChunkText(long)
	if !utf8.ValidString(capped) {
		t.Fatalf("capped text is invalid UTF-8: %q", capped[:20])
	}
	if got := utf8.RuneCountInString(capped); got != metadataTextLimit {
		t.Errorf("expected %d characters, got %d", metadataTextLimit, got)
	}
	if !strings.HasPrefix(capped, "ab界") {
		t.Errorf("expected capped text to start with the original text")
	}
}

func TestObjectIDDeterministic(t *testing.T) {
	if objectID("p1_chunk_0") != objectID("p1_chunk_0") {
		t.Error("expected the same chunk ID to map to the same object ID")
	}
	if objectID("p1_chunk_0") == objectID("p1_chunk_1") {
		t.Error("expected distinct chunk IDs to map to distinct object IDs")
	}
}
