package parser

import (
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// outline accumulates headings and paragraphs as markdown blocks.
type outline struct {
	blocks []string
	title  string
	heads  []string
}

func (o *outline) heading(level int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	level = min(max(level, 1), 6)
	if o.title == "" && level == 1 {
		o.title = text
	}
	o.heads = append(o.heads, text)
	o.blocks = append(o.blocks, strings.Repeat("#", level)+" "+text)
}

func (o *outline) paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		o.blocks = append(o.blocks, text)
	}
}

func (o *outline) content() string {
	return document.NormalizeSpaces(strings.Join(o.blocks, "\n\n"))
}

func (o *outline) result(extra document.Metadata) *document.ExtractionResult {
	meta := document.Metadata{
		document.KeyTitle: o.title,
		"headings":        o.heads,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return &document.ExtractionResult{
		Content:  o.content(),
		MimeType: document.MarkdownMimeType,
		Metadata: meta.Normalize(),
	}
}
