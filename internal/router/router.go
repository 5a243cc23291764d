// Package router decides how a document must be extracted: the cheap
// text-only path or the full pipeline, and which OCR backends serve it.
package router

import "github.com/dgallion1/docnorm/internal/document"

// Strategy names an extraction path.
type Strategy string

const (
	Lightweight Strategy = "lightweight"
	Full        Strategy = "full"
)

// Overrides are per-call backend choices. They win over everything else.
type Overrides struct {
	OCRBackend      string `json:"ocr_backend,omitempty"`
	ImageOCRBackend string `json:"image_ocr_backend,omitempty"`
}

// Decision is the outcome of routing one extraction.
type Decision struct {
	Strategy Strategy
	Config   document.ExtractionConfig
}

// RequiresFullPipeline reports whether cfg asks for anything beyond plain
// text extraction.
func RequiresFullPipeline(cfg document.ExtractionConfig) bool {
	switch {
	case cfg.ForceOCR:
		return true
	case cfg.ExtractTables, cfg.ExtractTablesFromOCR:
		return true
	case cfg.ExtractImages:
		return true
	case cfg.ImageOCREnabled():
		return true
	case cfg.ImageOCRBackend != "":
		return true
	}
	return false
}

// ResolveBackends returns a copy of cfg with both OCR axes resolved.
//
// OCR axis: an override wins; otherwise an explicit OCRConfig or a named
// non-default backend is kept; otherwise fallback is substituted.
// Image-OCR axis: an override wins; otherwise a named backend is kept;
// otherwise fallback is substituted when image OCR is enabled.
//
// An empty fallback disables substitution.
func ResolveBackends(cfg document.ExtractionConfig, ov Overrides, fallback string) document.ExtractionConfig {
	out := cfg.Clone()

	switch {
	case ov.OCRBackend != "":
		out.OCRBackend = ov.OCRBackend
	case fallback != "" && out.OCRConfig == nil && isDefaultBackend(out.OCRBackend):
		out.OCRBackend = fallback
	}
	if out.OCRBackend == "" {
		out.OCRBackend = document.DefaultOCRBackend
	}

	switch {
	case ov.ImageOCRBackend != "":
		out.ImageOCRBackend = ov.ImageOCRBackend
	case fallback != "" && out.ImageOCRBackend == "" && out.ImageOCREnabled():
		out.ImageOCRBackend = fallback
	}

	return out
}

// Route picks the strategy for cfg. Backend substitution only applies to
// the full strategy; the lightweight path never reaches an OCR backend, so
// its config is returned as an untouched copy.
func Route(cfg document.ExtractionConfig, ov Overrides, fallback string) Decision {
	if !RequiresFullPipeline(cfg) && ov.ImageOCRBackend == "" {
		return Decision{Strategy: Lightweight, Config: cfg.Clone()}
	}
	return Decision{Strategy: Full, Config: ResolveBackends(cfg, ov, fallback)}
}

func isDefaultBackend(id string) bool {
	return id == "" || id == document.DefaultOCRBackend
}
