package metadata

import (
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// Value is a resolved metadata value: a string or a flat list of strings.
type Value struct {
	Text   string
	List   []string
	IsList bool
}

// Any returns the value as string or []string.
func (v Value) Any() any {
	if v.IsList {
		return v.List
	}
	return v.Text
}

func scalar(s string) (Value, bool) {
	if s == "" {
		return Value{}, false
	}
	return Value{Text: s}, true
}

func list(items []string) (Value, bool) {
	if len(items) == 0 {
		return Value{}, false
	}
	return Value{List: items, IsList: true}, true
}

// Extract resolves n to a value. The second result is false when n holds
// nothing usable.
func Extract(n Node) (Value, bool) {
	switch n := n.(type) {
	case MetaString:
		return scalar(n.Text)
	case MetaInlines:
		return scalar(inlineText(n.Inlines))
	case Str, Space, Emph, Strong:
		return scalar(inlineText([]Node{n}))
	case MetaList:
		return flatten(n.Items)
	case List:
		return flatten(n.Items)
	case MetaBlocks:
		var out []string
		for _, b := range n.Blocks {
			p, ok := b.(Para)
			if !ok {
				continue
			}
			if s := inlineText(p.Inlines); s != "" {
				out = append(out, s)
			}
		}
		return list(out)
	case MetaMap, MetaBool, Para, Cite, Unknown, nil:
		return Value{}, false
	}
	return Value{}, false
}

// flatten resolves each item, splicing list results one level deep.
func flatten(items []Node) (Value, bool) {
	var out []string
	for _, it := range items {
		v, ok := Extract(it)
		if !ok {
			continue
		}
		if v.IsList {
			out = append(out, v.List...)
		} else {
			out = append(out, v.Text)
		}
	}
	return list(out)
}

// inlineText concatenates an inline run and trims the result.
func inlineText(inlines []Node) string {
	var b strings.Builder
	writeInlines(&b, inlines)
	return strings.TrimSpace(b.String())
}

func writeInlines(b *strings.Builder, inlines []Node) {
	for _, in := range inlines {
		switch in := in.(type) {
		case Str:
			b.WriteString(in.Text)
		case Space:
			b.WriteByte(' ')
		case Emph:
			b.WriteString(inlineText(in.Inlines))
		case Strong:
			b.WriteString(inlineText(in.Inlines))
		}
	}
}

// FromMeta resolves every metadata entry, keeping only keys with a value,
// then installs citation identifiers found in blocks under "citations".
func FromMeta(meta map[string]Node, blocks []Node) document.Metadata {
	out := make(document.Metadata, len(meta))
	for k, n := range meta {
		if v, ok := Extract(n); ok {
			out[k] = v.Any()
		}
	}
	if ids := Citations(blocks); len(ids) > 0 {
		out[document.KeyCitations] = ids
	}
	return out
}

// FromDocument is FromMeta over a decoded document.
func FromDocument(doc *Document) document.Metadata {
	return FromMeta(doc.Meta, doc.Blocks)
}

// Citations collects citation identifiers from Cite blocks in order.
func Citations(blocks []Node) []string {
	var ids []string
	for _, b := range blocks {
		if c, ok := b.(Cite); ok {
			ids = append(ids, c.IDs...)
		}
	}
	return ids
}
