package parser

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// DXFParser summarizes DXF drawings from their group codes. Files that do
// not decode as group-code pairs get a text-level summary instead.
type DXFParser struct{}

const (
	dxfEntityLimit = 25
	dxfLayerLimit  = 8
)

func (p *DXFParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "read dxf",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	// Group values may be empty, so blank lines are kept for pairing and
	// only dropped from the text fallback.
	var pairs, text []string
	for line := range strings.Lines(strings.ToValidUTF8(string(data), "")) {
		line = strings.TrimSpace(line)
		pairs = append(pairs, line)
		if line != "" {
			text = append(text, line)
		}
	}
	for len(pairs) > 0 && pairs[len(pairs)-1] == "" {
		pairs = pairs[:len(pairs)-1]
	}

	var summary string
	var meta document.Metadata
	if d, ok := decodeDXF(pairs); ok {
		summary, meta = d.summary(), d.metadata()
	} else {
		summary = dxfFallback(text)
		meta = document.Metadata{
			document.KeySourceFormat: "dxf",
			"mode":                   "text_fallback",
			"warning":                "drawing is not a group-code stream, using text-level heuristics",
		}
	}

	return &document.ExtractionResult{
		Content:  document.NormalizeSpaces(summary),
		MimeType: document.PlainTextMimeType,
		Metadata: meta.Normalize(),
	}, nil
}

type dxfDrawing struct {
	layers   []string
	entities map[string]int
}

// decodeDXF walks code/value pairs. Layer names come from the LAYER table
// and entity types from the ENTITIES section.
func decodeDXF(lines []string) (*dxfDrawing, bool) {
	if len(lines) < 2 || len(lines)%2 != 0 {
		return nil, false
	}
	d := &dxfDrawing{entities: map[string]int{}}
	layers := map[string]bool{}
	var section string
	var inLayer, sawSection bool
	for i := 0; i+1 < len(lines); i += 2 {
		code, value := lines[i], lines[i+1]
		if !isGroupCode(code) {
			return nil, false
		}
		switch {
		case code == "0" && value == "SECTION":
			sawSection = true
			section = ""
		case code == "2" && section == "":
			section = strings.ToUpper(value)
		case code == "0" && value == "ENDSEC":
			section = ""
		case section == "TABLES" && code == "0":
			inLayer = value == "LAYER"
		case section == "TABLES" && inLayer && code == "2":
			layers[value] = true
		case section == "ENTITIES" && code == "0":
			d.entities[value]++
		}
	}
	if !sawSection {
		return nil, false
	}
	d.layers = slices.Sorted(maps.Keys(layers))
	return d, true
}

func isGroupCode(s string) bool {
	if s == "" || len(s) > 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (d *dxfDrawing) metadata() document.Metadata {
	return document.Metadata{
		document.KeySourceFormat: "dxf",
		"mode":                   "group_codes",
		"layers":                 d.layers,
		"entity_counts":          d.entities,
	}
}

func (d *dxfDrawing) summary() string {
	out := []string{"DXF drawing summary"}
	if n := len(d.layers); n > 0 {
		out = append(out, fmt.Sprintf("Layers (%d): %s", n, strings.Join(d.layers[:min(n, dxfLayerLimit)], ", ")))
		if n > dxfLayerLimit {
			out = append(out, fmt.Sprintf("... %d more layers", n-dxfLayerLimit))
		}
	}
	if len(d.entities) == 0 {
		return strings.Join(append(out, "No entities detected in model space"), "\n")
	}

	// Most common first, ties by name.
	names := slices.SortedFunc(maps.Keys(d.entities), func(a, b string) int {
		if c := cmp.Compare(d.entities[b], d.entities[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	out = append(out, "Entity distribution:")
	for _, name := range names[:min(len(names), dxfEntityLimit)] {
		out = append(out, fmt.Sprintf("- %s: %d", name, d.entities[name]))
	}
	if extra := len(names) - dxfEntityLimit; extra > 0 {
		out = append(out, fmt.Sprintf("... %d additional entity types", extra))
	}
	return strings.Join(out, "\n")
}

func dxfFallback(lines []string) string {
	var sections []string
	seen := map[string]bool{}
	for i := 0; i+1 < len(lines); i++ {
		if !strings.EqualFold(lines[i], "SECTION") {
			continue
		}
		name := lines[i+1]
		if key := strings.ToUpper(name); !seen[key] {
			seen[key] = true
			sections = append(sections, name)
		}
	}

	out := []string{"DXF fallback summary"}
	if len(sections) > 0 {
		out = append(out, fmt.Sprintf("Sections (%d): %s", len(sections), strings.Join(sections, ", ")))
	}
	if preview := lines[:min(len(lines), dxfEntityLimit)]; len(preview) > 0 {
		out = append(out, "Preview:")
		for _, l := range preview {
			out = append(out, "- "+l)
		}
	}
	return strings.Join(out, "\n")
}
