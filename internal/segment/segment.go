// Package segment detects section headings in extracted page text and
// partitions pages into contiguous section spans.
package segment

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Section headers are short lines; anything longer is body text.
const maxHeadingLen = 50

// SeedSection labels text that appears before the first detected heading.
const SeedSection = "Abstract"

// Common section headers in research papers.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^abstract\s*$`),
	regexp.MustCompile(`(?i)^introduction\s*$`),
	regexp.MustCompile(`(?i)^related\s*work\s*$`),
	regexp.MustCompile(`(?i)^background\s*$`),
	regexp.MustCompile(`(?i)^methodology\s*$`),
	regexp.MustCompile(`(?i)^methods?\s*$`),
	regexp.MustCompile(`(?i)^approach\s*$`),
	regexp.MustCompile(`(?i)^proposed\s*(method|approach|system)\s*$`),
	regexp.MustCompile(`(?i)^experiments?\s*$`),
	regexp.MustCompile(`(?i)^results?\s*$`),
	regexp.MustCompile(`(?i)^evaluation\s*$`),
	regexp.MustCompile(`(?i)^discussion\s*$`),
	regexp.MustCompile(`(?i)^conclusions?\s*$`),
	regexp.MustCompile(`(?i)^future\s*work\s*$`),
	regexp.MustCompile(`(?i)^references?\s*$`),
	regexp.MustCompile(`(?i)^acknowledge?ments?\s*$`),
	regexp.MustCompile(`(?i)^appendix\s*`),
	regexp.MustCompile(`(?i)^\d+\.?\s*(introduction|related|background|method|result|conclusion)`),
}

var numericPrefix = regexp.MustCompile(`^\d+\.?\s*`)

// DetectHeadings scans page text line by line and returns detected
// section headings with their byte offsets into text.
func DetectHeadings(text string) []paper.Heading {
	var headings []paper.Heading
	caser := cases.Title(language.English)

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if len(stripped) < maxHeadingLen {
			for _, pat := range sectionPatterns {
				if pat.MatchString(stripped) {
					label := numericPrefix.ReplaceAllString(stripped, "")
					label = caser.String(label)
					headings = append(headings, paper.Heading{
						Offset: offset,
						Label:  strings.TrimSpace(label),
					})
					break
				}
			}
		}
		offset += len(line) + 1 // +1 for the newline
	}

	return headings
}

// Segment walks pages in order and attributes each run of text to the
// most recent section heading, starting from SeedSection. Spans
// partition each page's text; the heading line stays at the start of
// its own section's span. Empty spans are dropped.
func Segment(pages []paper.PageText) []paper.SectionSpan {
	var spans []paper.SectionSpan
	current := SeedSection

	for _, page := range pages {
		headings := page.Headings
		if headings == nil {
			headings = DetectHeadings(page.Text)
		}

		if len(headings) == 0 {
			if text := strings.TrimSpace(page.Text); text != "" {
				spans = append(spans, paper.SectionSpan{
					Section: current,
					Page:    page.Number,
					Text:    text,
				})
			}
			continue
		}

		prev := 0
		for _, h := range headings {
			if h.Offset > prev {
				if text := strings.TrimSpace(page.Text[prev:h.Offset]); text != "" {
					spans = append(spans, paper.SectionSpan{
						Section: current,
						Page:    page.Number,
						Text:    text,
					})
				}
			}
			current = h.Label
			prev = h.Offset
		}

		if prev < len(page.Text) {
			if text := strings.TrimSpace(page.Text[prev:]); text != "" {
				spans = append(spans, paper.SectionSpan{
					Section: current,
					Page:    page.Number,
					Text:    text,
				})
			}
		}
	}

	return spans
}
