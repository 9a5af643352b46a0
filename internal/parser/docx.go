package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dhalloran/paperqa/internal/paper"
)

// DOCXParser handles .docx files. The document becomes a single logical
// page; heading paragraphs are kept as standalone lines so downstream
// section detection still sees them.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Result, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "paperqa-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	result := &Result{Title: titleFromFilename(filename)}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		// First heading doubles as the document title.
		if docxIsHeading(para) && len(lines) == 0 {
			result.Title = text
		}
		lines = append(lines, text)
	}

	body := strings.TrimSpace(strings.Join(lines, "\n"))
	if body != "" {
		result.Pages = []paper.PageText{{Number: 1, Text: body}}
	}
	return result, nil
}

func docxIsHeading(para *docx.Paragraph) bool {
	if para.Properties == nil || para.Properties.Style == nil {
		return false
	}
	style := strings.ToLower(para.Properties.Style.Val)
	return strings.HasPrefix(style, "heading")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
