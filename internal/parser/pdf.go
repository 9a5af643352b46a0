package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Title spans must render larger than body text to count.
const (
	titleMinFontSize = 14.0
	titleMaxLen      = 200
)

// PDFParser handles PDF files, extracting per-page text and a
// best-effort title from the largest font on page 1.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*Result, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "paperqa-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	result := &Result{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			result.Title = titleFromFonts(page)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		result.Pages = append(result.Pages, paper.PageText{
			Number: i,
			Text:   text,
		})
	}

	if result.Title == "" {
		result.Title = titleFromFilename(filename)
	}
	return result, nil
}

// titleFromFonts picks the text rendered in the page's largest font,
// provided it is larger than typical body text. Papers almost always
// set the title this way on page 1.
func titleFromFonts(page pdflib.Page) string {
	defer func() {
		// Content() panics on some malformed PDFs; a missing title is fine.
		_ = recover()
	}()

	content := page.Content()
	maxSize := titleMinFontSize
	for _, t := range content.Text {
		if t.FontSize > maxSize {
			maxSize = t.FontSize
		}
	}
	if maxSize <= titleMinFontSize {
		return ""
	}

	var buf strings.Builder
	for _, t := range content.Text {
		if t.FontSize == maxSize {
			buf.WriteString(t.S)
		}
	}
	return normalizeTitle(buf.String())
}

// normalizeTitle collapses whitespace and caps the title at titleMaxLen
// characters, cutting on rune boundaries.
func normalizeTitle(s string) string {
	title := strings.Join(strings.Fields(s), " ")
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen])
	}
	return title
}
