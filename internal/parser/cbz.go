package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// CBZParser summarizes comic book archives without decoding the pages.
type CBZParser struct {
	// MaxImageBytes caps each page read by Images. Zero means
	// DefaultMaxImageBytes.
	MaxImageBytes int64
}

const cbzPreview = 5

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".tiff": true, ".bmp": true,
}

func (p *CBZParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "read cbz",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	res := &document.ExtractionResult{MimeType: document.PlainTextMimeType}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		res.Content = "Failed to open CBZ archive"
		res.Metadata = document.Metadata{
			document.KeySourceFormat: "cbz",
			"warning":                "Invalid ZIP structure: " + err.Error(),
		}
		return res, nil
	}

	var total uint64
	extCounts := map[string]int{}
	var images, others []string
	for _, f := range zr.File {
		total += f.UncompressedSize64
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != "" {
			extCounts[ext]++
		}
		if imageExtensions[ext] {
			images = append(images, f.Name)
		} else {
			others = append(others, f.Name)
		}
	}

	meta := document.Metadata{
		document.KeySourceFormat: "cbz",
		"file_count":             len(zr.File),
		"uncompressed_bytes":     total,
		"extension_counts":       extCounts,
	}
	if len(images) > 0 {
		meta["image_count"] = len(images)
	}

	out := []string{"Comic book archive summary"}
	if len(images) > 0 {
		out = append(out, fmt.Sprintf("Image entries: %d", len(images)), "Preview:")
		out = appendPreview(out, images, "more image files")
	} else {
		out = append(out, "No image entries detected, archive treated as metadata-only")
	}
	if len(others) > 0 {
		out = append(out, "Non-image entries:")
		out = appendPreview(out, others, "more supporting files")
	}

	res.Content = document.NormalizeSpaces(strings.Join(out, "\n"))
	res.Metadata = meta.Normalize()
	return res, nil
}

func appendPreview(out, names []string, rest string) []string {
	for _, n := range names[:min(len(names), cbzPreview)] {
		out = append(out, "- "+n)
	}
	if extra := len(names) - cbzPreview; extra > 0 {
		out = append(out, fmt.Sprintf("... %d %s", extra, rest))
	}
	return out
}
