package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dhalloran/paperqa/internal/paper"
)

// Result is the raw output of text extraction: the document's pages in
// reading order plus a best-effort title. The title is display-only and
// may be empty.
type Result struct {
	Title string
	Pages []paper.PageText
}

// Parser converts raw document bytes into extracted page texts.
type Parser interface {
	Parse(r io.Reader, filename string) (*Result, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename derives a fallback title from the upload's filename.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
