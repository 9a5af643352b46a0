package segment

import (
	"strings"
	"testing"

	"github.com/dhalloran/paperqa/internal/paper"
)

func TestDetectHeadings_CommonSections(t *testing.T) {
	text := "Introduction\nSome body text here.\nRelated Work\nMore text.\nReferences\n"
	headings := DetectHeadings(text)

	want := []string{"Introduction", "Related Work", "References"}
	if len(headings) != len(want) {
		t.Fatalf("expected %d headings, got %d: %+v", len(want), len(headings), headings)
	}
	for i, w := range want {
		if headings[i].Label != w {
			t.Errorf("heading[%d]: expected %q, got %q", i, w, headings[i].Label)
		}
	}

	// Offsets must point at the heading's line start.
	if headings[0].Offset != 0 {
		t.Errorf("first heading offset: expected 0, got %d", headings[0].Offset)
	}
	if !strings.HasPrefix(text[headings[1].Offset:], "Related Work") {
		t.Errorf("second heading offset %d does not point at its line", headings[1].Offset)
	}
}

func TestDetectHeadings_NumberedAndCased(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"1. Introduction", "Introduction"},
		{"3 Methodology", "Methodology"},
		{"RESULTS", "Results"},
		{"conclusion", "Conclusion"},
		{"2. Related Work", "Related Work"},
	}
	for _, tt := range tests {
		headings := DetectHeadings(tt.line)
		if len(headings) != 1 {
			t.Errorf("line %q: expected 1 heading, got %d", tt.line, len(headings))
			continue
		}
		if headings[0].Label != tt.want {
			t.Errorf("line %q: expected label %q, got %q", tt.line, tt.want, headings[0].Label)
		}
	}
}

func TestDetectHeadings_LongLinesIgnored(t *testing.T) {
	// A sentence that happens to start with a section word but is too
	// long to be a header.
	line := "Introduction to the methods used in this study is given in the following paragraphs."
	if got := DetectHeadings(line); len(got) != 0 {
		t.Errorf("expected no headings for long line, got %+v", got)
	}
}

func TestDetectHeadings_NonHeadingLines(t *testing.T) {
	for _, line := range []string{"", "Table 3", "The results were good.", "Figure 1: overview"} {
		if got := DetectHeadings(line); len(got) != 0 {
			t.Errorf("line %q: expected no headings, got %+v", line, got)
		}
	}
}

func TestSegment_SeedSectionBeforeFirstHeading(t *testing.T) {
	pages := []paper.PageText{
		{Number: 1, Text: "This paper studies retrieval.\nIntroduction\nWe begin with context."},
	}
	spans := Segment(pages)

	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Section != "Abstract" {
		t.Errorf("expected seed section %q, got %q", "Abstract", spans[0].Section)
	}
	if spans[0].Text != "This paper studies retrieval." {
		t.Errorf("unexpected first span text: %q", spans[0].Text)
	}
	if spans[1].Section != "Introduction" {
		t.Errorf("expected %q, got %q", "Introduction", spans[1].Section)
	}
	if !strings.Contains(spans[1].Text, "We begin with context.") {
		t.Errorf("expected introduction body in span, got %q", spans[1].Text)
	}
}

func TestSegment_SectionCarriesAcrossPages(t *testing.T) {
	pages := []paper.PageText{
		{Number: 1, Text: "Methodology\nWe used a transformer."},
		{Number: 2, Text: "Training took three days."},
		{Number: 3, Text: "Results\nAccuracy improved."},
	}
	spans := Segment(pages)

	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Section != "Methodology" || spans[0].Page != 1 {
		t.Errorf("span 0: got section %q page %d", spans[0].Section, spans[0].Page)
	}
	// Page with no headings inherits the open section.
	if spans[1].Section != "Methodology" || spans[1].Page != 2 {
		t.Errorf("span 1: got section %q page %d", spans[1].Section, spans[1].Page)
	}
	if spans[2].Section != "Results" || spans[2].Page != 3 {
		t.Errorf("span 2: got section %q page %d", spans[2].Section, spans[2].Page)
	}
}

func TestSegment_EmptySpansDropped(t *testing.T) {
	pages := []paper.PageText{
		{Number: 1, Text: "Introduction\nResults\nOnly the results section has body text."},
	}
	spans := Segment(pages)

	// Introduction's span is just its own heading line followed
	// immediately by Results, so only Results should survive with text.
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			t.Errorf("empty span leaked: %+v", s)
		}
	}
	last := spans[len(spans)-1]
	if last.Section != "Results" {
		t.Errorf("expected final span in Results, got %q", last.Section)
	}
}

func TestSegment_BlankPagesProduceNoSpans(t *testing.T) {
	pages := []paper.PageText{
		{Number: 1, Text: "   \n  "},
		{Number: 2, Text: ""},
	}
	if spans := Segment(pages); len(spans) != 0 {
		t.Errorf("expected no spans for blank pages, got %+v", spans)
	}
}

func TestSegment_PrecomputedHeadingsRespected(t *testing.T) {
	text := "Intro text.\nCustom Heading\nBody."
	pages := []paper.PageText{
		{
			Number:   1,
			Text:     text,
			Headings: []paper.Heading{{Offset: strings.Index(text, "Custom Heading"), Label: "Custom Heading"}},
		},
	}
	spans := Segment(pages)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[1].Section != "Custom Heading" {
		t.Errorf("expected precomputed heading label, got %q", spans[1].Section)
	}
}
