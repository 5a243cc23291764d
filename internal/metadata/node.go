// Package metadata reduces a pandoc JSON document tree to flat document
// metadata.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is one value of the pandoc document model. Each tag has its own
// variant; anything unrecognized or malformed decodes to Unknown.
type Node interface {
	node()
}

type (
	// MetaString is a metadata string leaf.
	MetaString struct{ Text string }
	// MetaInlines is a metadata value made of an inline run.
	MetaInlines struct{ Inlines []Node }
	// MetaList is a metadata list.
	MetaList struct{ Items []Node }
	// MetaBlocks is a metadata value holding blocks.
	MetaBlocks struct{ Blocks []Node }
	// MetaMap is a nested metadata mapping.
	MetaMap struct{ Fields map[string]Node }
	// MetaBool is a metadata boolean.
	MetaBool struct{ Value bool }

	// Str is a plain text inline.
	Str struct{ Text string }
	// Space is an inter-word space. Soft and hard line breaks decode to it.
	Space struct{}
	// Emph wraps emphasized inlines.
	Emph struct{ Inlines []Node }
	// Strong wraps strongly emphasized inlines.
	Strong struct{ Inlines []Node }

	// Para is a paragraph block.
	Para struct{ Inlines []Node }
	// Cite is a citation with the identifiers it references.
	Cite struct {
		IDs     []string
		Inlines []Node
	}

	// List is a bare JSON array of nodes.
	List struct{ Items []Node }
	// Unknown is a tag this package does not interpret, or a node missing
	// the fields its tag requires.
	Unknown struct{ Tag string }
)

func (MetaString) node()  {}
func (MetaInlines) node() {}
func (MetaList) node()    {}
func (MetaBlocks) node()  {}
func (MetaMap) node()     {}
func (MetaBool) node()    {}
func (Str) node()         {}
func (Space) node()       {}
func (Emph) node()        {}
func (Strong) node()      {}
func (Para) node()        {}
func (Cite) node()        {}
func (List) node()        {}
func (Unknown) node()     {}

// Document is a decoded pandoc JSON document.
type Document struct {
	Meta   map[string]Node
	Blocks []Node
}

// DecodeDocument parses the output of `pandoc --to=json`.
func DecodeDocument(data []byte) (*Document, error) {
	var raw struct {
		Meta   map[string]json.RawMessage `json:"meta"`
		Blocks []json.RawMessage          `json:"blocks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode pandoc json: %w", err)
	}
	doc := &Document{
		Meta:   make(map[string]Node, len(raw.Meta)),
		Blocks: decodeAll(raw.Blocks),
	}
	for k, v := range raw.Meta {
		doc.Meta[k] = Decode(v)
	}
	return doc, nil
}

// Decode converts one JSON value into a Node. It never fails; values it
// cannot interpret become Unknown.
func Decode(raw json.RawMessage) Node {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Unknown{}
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return Unknown{}
		}
		return MetaString{Text: s}
	case '[':
		items, ok := decodeList(raw)
		if !ok {
			return Unknown{}
		}
		return List{Items: items}
	case '{':
		return decodeTagged(raw)
	}
	return Unknown{}
}

func decodeTagged(raw json.RawMessage) Node {
	var tagged struct {
		T string          `json:"t"`
		C json.RawMessage `json:"c"`
	}
	if json.Unmarshal(raw, &tagged) != nil || tagged.T == "" {
		return Unknown{}
	}

	switch tagged.T {
	case "Space", "SoftBreak", "LineBreak":
		return Space{}
	}
	if len(tagged.C) == 0 {
		return Unknown{Tag: tagged.T}
	}

	switch tagged.T {
	case "MetaString":
		var s string
		if json.Unmarshal(tagged.C, &s) != nil {
			return Unknown{Tag: tagged.T}
		}
		return MetaString{Text: s}
	case "Str":
		var s string
		if json.Unmarshal(tagged.C, &s) != nil {
			return Unknown{Tag: tagged.T}
		}
		return Str{Text: s}
	case "MetaBool":
		var b bool
		if json.Unmarshal(tagged.C, &b) != nil {
			return Unknown{Tag: tagged.T}
		}
		return MetaBool{Value: b}
	case "MetaInlines", "MetaList", "MetaBlocks", "Emph", "Strong", "Para":
		items, ok := decodeList(tagged.C)
		if !ok {
			return Unknown{Tag: tagged.T}
		}
		switch tagged.T {
		case "MetaInlines":
			return MetaInlines{Inlines: items}
		case "MetaList":
			return MetaList{Items: items}
		case "MetaBlocks":
			return MetaBlocks{Blocks: items}
		case "Emph":
			return Emph{Inlines: items}
		case "Strong":
			return Strong{Inlines: items}
		default:
			return Para{Inlines: items}
		}
	case "MetaMap":
		var fields map[string]json.RawMessage
		if json.Unmarshal(tagged.C, &fields) != nil {
			return Unknown{Tag: tagged.T}
		}
		m := MetaMap{Fields: make(map[string]Node, len(fields))}
		for k, v := range fields {
			m.Fields[k] = Decode(v)
		}
		return m
	case "Cite":
		return decodeCite(tagged.C)
	}
	return Unknown{Tag: tagged.T}
}

// decodeCite reads [citations, inlines]. The citations element is usually
// a list of citation objects; a single object is accepted too.
func decodeCite(raw json.RawMessage) Node {
	var payload []json.RawMessage
	if json.Unmarshal(raw, &payload) != nil || len(payload) == 0 {
		return Unknown{Tag: "Cite"}
	}

	var cite Cite
	first := bytes.TrimSpace(payload[0])
	switch {
	case len(first) > 0 && first[0] == '[':
		var entries []json.RawMessage
		if json.Unmarshal(first, &entries) == nil {
			for _, e := range entries {
				if id, ok := citationID(e); ok {
					cite.IDs = append(cite.IDs, id)
				}
			}
		}
	default:
		if id, ok := citationID(first); ok {
			cite.IDs = append(cite.IDs, id)
		}
	}
	if len(payload) > 1 {
		cite.Inlines, _ = decodeList(payload[1])
	}
	return cite
}

func citationID(raw json.RawMessage) (string, bool) {
	var c struct {
		ID *string `json:"citationId"`
	}
	if json.Unmarshal(raw, &c) != nil || c.ID == nil || *c.ID == "" {
		return "", false
	}
	return *c.ID, true
}

func decodeList(raw json.RawMessage) ([]Node, bool) {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil, false
	}
	return decodeAll(items), true
}

func decodeAll(items []json.RawMessage) []Node {
	out := make([]Node, 0, len(items))
	for _, it := range items {
		out = append(out, Decode(it))
	}
	return out
}
