package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dhalloran/paperqa/internal/paper"
)

// MarkdownParser handles Markdown files using goldmark. Headings are
// flattened to their own lines inside a single logical page.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	result := &Result{Title: titleFromFilename(filename)}

	var blocks []string
	sawHeading := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(string(node.Text(src)))
			if title == "" {
				continue
			}
			if !sawHeading {
				sawHeading = true
				result.Title = title
			}
			blocks = append(blocks, title)
		default:
			if t := extractText(n, src); t != "" {
				blocks = append(blocks, t)
			}
		}
	}

	body := strings.TrimSpace(strings.Join(blocks, "\n"))
	if body != "" {
		result.Pages = []paper.PageText{{Number: 1, Text: body}}
	}
	return result, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	// Also handle inline children.
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
