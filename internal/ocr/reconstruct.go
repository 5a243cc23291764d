package ocr

import (
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// Reconstruction is reading-ordered text rebuilt from OCR boxes.
type Reconstruction struct {
	Content string
	Width   int
	Height  int

	// Confidence totals over every box with non-empty text. Diagnostic
	// only; not copied into result metadata.
	ConfidenceSum   float64
	ConfidenceCount int
}

// MeanConfidence returns the average box confidence, or 0 without boxes.
func (r Reconstruction) MeanConfidence() float64 {
	if r.ConfidenceCount == 0 {
		return 0
	}
	return r.ConfidenceSum / float64(r.ConfidenceCount)
}

// Result converts r into an ExtractionResult carrying page dimensions.
func (r Reconstruction) Result() *document.ExtractionResult {
	return &document.ExtractionResult{
		Content:  r.Content,
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{
			document.KeyWidth:  r.Width,
			document.KeyHeight: r.Height,
		},
	}
}

// Reconstructor rebuilds text from per-page box sets.
type Reconstructor struct {
	// LineThreshold is the vertical grouping distance. Zero means
	// DefaultLineThreshold.
	LineThreshold float64
}

// Reconstruct uses DefaultLineThreshold.
func Reconstruct(pages [][]Box, width, height int) Reconstruction {
	return Reconstructor{}.Reconstruct(pages, width, height)
}

// Reconstruct orders every page's boxes into lines and joins them. Empty
// pages are skipped; width and height are reported even when no text was
// found.
func (r Reconstructor) Reconstruct(pages [][]Box, width, height int) Reconstruction {
	threshold := r.LineThreshold
	if threshold == 0 {
		threshold = DefaultLineThreshold
	}

	out := Reconstruction{Width: width, Height: height}
	var b strings.Builder
	for _, page := range pages {
		if len(page) == 0 {
			continue
		}
		for _, line := range GroupLines(page, threshold) {
			for _, box := range line {
				if box.Text == "" {
					continue
				}
				b.WriteString(box.Text)
				b.WriteByte(' ')
				out.ConfidenceSum += box.Confidence
				out.ConfidenceCount++
			}
			b.WriteByte('\n')
		}
	}
	out.Content = document.NormalizeSpaces(b.String())
	return out
}
