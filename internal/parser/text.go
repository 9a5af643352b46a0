package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dhalloran/paperqa/internal/paper"
)

// TextParser handles plain text files as a single logical page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result := &Result{Title: titleFromFilename(filename)}
	body := strings.TrimSpace(strings.Join(lines, "\n"))
	if body != "" {
		result.Pages = []paper.PageText{{Number: 1, Text: body}}
	}
	return result, nil
}
