package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// STLParser summarizes STL meshes, either ASCII or binary.
type STLParser struct{}

const stlHeaderSize = 84

func (p *STLParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "read stl",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	var summary string
	var meta document.Metadata
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		summary, meta = summarizeASCIISTL(string(data))
	} else {
		summary, meta = summarizeBinarySTL(data)
	}

	return &document.ExtractionResult{
		Content:  document.NormalizeSpaces(summary),
		MimeType: document.PlainTextMimeType,
		Metadata: meta.Normalize(),
	}, nil
}

type bounds struct {
	min, max [3]float64
	seen     bool
}

func (b *bounds) add(v [3]float64) {
	if !b.seen {
		b.min, b.max, b.seen = v, v, true
		return
	}
	for i := range 3 {
		b.min[i] = min(b.min[i], v[i])
		b.max[i] = max(b.max[i], v[i])
	}
}

func (b *bounds) metadata() map[string]float64 {
	return map[string]float64{
		"xmin": b.min[0], "xmax": b.max[0],
		"ymin": b.min[1], "ymax": b.max[1],
		"zmin": b.min[2], "zmax": b.max[2],
	}
}

func (b *bounds) String() string {
	return fmt.Sprintf("Bounds: x=(%.3f, %.3f), y=(%.3f, %.3f), z=(%.3f, %.3f)",
		b.min[0], b.max[0], b.min[1], b.max[1], b.min[2], b.max[2])
}

func summarizeASCIISTL(text string) (string, document.Metadata) {
	meta := document.Metadata{document.KeySourceFormat: "stl", "mode": "ascii"}

	var lines []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var name string
	if len(lines) > 0 {
		if rest, ok := strings.CutPrefix(lines[0], "solid "); ok {
			name = strings.TrimSpace(rest)
		}
	}
	if name != "" {
		meta["solid"] = name
	}

	facets := 0
	var box bounds
	for _, line := range lines {
		if strings.HasPrefix(line, "facet normal") {
			facets++
			continue
		}
		if !strings.HasPrefix(line, "vertex ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		var v [3]float64
		ok := true
		for i := range 3 {
			f, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			v[i] = f
		}
		if ok {
			box.add(v)
		}
	}
	meta["facet_count"] = facets

	out := []string{"STL mesh summary (ASCII)"}
	if name != "" {
		out = append(out, "Solid name: "+name)
	}
	out = append(out, fmt.Sprintf("Facets detected: %d", facets))
	if box.seen {
		meta["bounds"] = box.metadata()
		out = append(out, box.String())
	} else {
		out = append(out, "No vertex coordinates detected")
	}
	return strings.Join(out, "\n"), meta
}

func summarizeBinarySTL(data []byte) (string, document.Metadata) {
	meta := document.Metadata{document.KeySourceFormat: "stl", "mode": "binary"}
	if len(data) < stlHeaderSize {
		meta["warning"] = "Binary STL shorter than header"
		return "Binary STL file is truncated", meta
	}

	header := strings.TrimSpace(strings.ToValidUTF8(string(bytes.TrimRight(data[:80], "\x00")), ""))
	count := binary.LittleEndian.Uint32(data[80:84])
	meta["facet_count"] = int(count)
	if header != "" {
		meta["header"] = header
	}

	preview := header
	if preview == "" {
		preview = "binary STL"
	}
	if r := []rune(preview); len(r) > 60 {
		preview = string(r[:60])
	}
	out := []string{
		"STL mesh summary (binary)",
		strings.TrimSpace("Header preview: " + preview),
		fmt.Sprintf("Facets declared: %d", count),
	}
	return strings.Join(out, "\n"), meta
}
