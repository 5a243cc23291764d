package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docnorm/internal/document"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if res.Content != want {
		t.Errorf("expected %q, got %q", want, res.Content)
	}
	if res.MimeType != document.PlainTextMimeType {
		t.Errorf("expected mime %q, got %q", document.PlainTextMimeType, res.MimeType)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "" {
		t.Errorf("expected empty content, got %q", res.Content)
	}
	if res.Metadata == nil {
		t.Error("expected non-nil metadata")
	}
}

func TestTextParser_SingleLine(t *testing.T) {
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader("Hello world"), "single.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", res.Content)
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "Para one.\n\nPara two." {
		t.Errorf("unexpected content %q", res.Content)
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para   one.\r\n   \r\nPara two.  "
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "Para one.\n\nPara two." {
		t.Errorf("unexpected content %q", res.Content)
	}
}
