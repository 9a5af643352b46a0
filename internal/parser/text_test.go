package parser

import (
	"strings"
	"testing"
)

func TestTextParser_SinglePage(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph."
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", res.Title)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Pages))
	}
	if res.Pages[0].Number != 1 {
		t.Errorf("expected page number 1, got %d", res.Pages[0].Number)
	}
	if !strings.Contains(res.Pages[0].Text, "Second paragraph.") {
		t.Errorf("expected page text to contain second paragraph, got %q", res.Pages[0].Text)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", res.Title)
	}
	if len(res.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(res.Pages))
	}
}

func TestForFile_SupportedAndUnsupported(t *testing.T) {
	supported := []string{"a.pdf", "b.docx", "c.md", "d.markdown", "e.html", "f.htm", "g.txt", "H.PDF"}
	for _, name := range supported {
		if _, err := ForFile(name); err != nil {
			t.Errorf("ForFile(%q): unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("IsSupportedExtension(%q) = false, want true", name)
		}
	}

	unsupported := []string{"x.exe", "y.csv", "z", "noext"}
	for _, name := range unsupported {
		if _, err := ForFile(name); err == nil {
			t.Errorf("ForFile(%q): expected error for unsupported extension", name)
		}
		if IsSupportedExtension(name) {
			t.Errorf("IsSupportedExtension(%q) = true, want false", name)
		}
	}
}
