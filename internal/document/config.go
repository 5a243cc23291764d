package document

import "maps"

// DefaultOCRBackend is the backend identifier used when nothing else is named.
const DefaultOCRBackend = "tesseract"

// ImageOCRConfig controls OCR over images extracted from a document.
type ImageOCRConfig struct {
	Enabled  bool   `json:"enabled"`
	Language string `json:"language,omitempty"`
}

// OCRConfig is an explicit OCR engine configuration. Supplying one pins
// the OCR backend the caller named.
type OCRConfig struct {
	Language string            `json:"language,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

// ExtractionConfig describes what a caller wants out of an extraction.
type ExtractionConfig struct {
	ForceOCR             bool            `json:"force_ocr"`
	ExtractTables        bool            `json:"extract_tables"`
	ExtractTablesFromOCR bool            `json:"extract_tables_from_ocr"`
	ExtractImages        bool            `json:"extract_images"`
	OCRExtractedImages   bool            `json:"ocr_extracted_images"`
	ImageOCRConfig       *ImageOCRConfig `json:"image_ocr_config,omitempty"`
	ImageOCRBackend      string          `json:"image_ocr_backend,omitempty"`
	OCRBackend           string          `json:"ocr_backend,omitempty"`
	OCRConfig            *OCRConfig      `json:"ocr_config,omitempty"`
	ChunkContent         bool            `json:"chunk_content"`
}

// ImageOCREnabled reports whether OCR over extracted images was requested.
func (c ExtractionConfig) ImageOCREnabled() bool {
	if c.ImageOCRConfig != nil && c.ImageOCRConfig.Enabled {
		return true
	}
	return c.OCRExtractedImages
}

// Clone returns a deep copy of c.
func (c ExtractionConfig) Clone() ExtractionConfig {
	out := c
	if c.ImageOCRConfig != nil {
		ic := *c.ImageOCRConfig
		out.ImageOCRConfig = &ic
	}
	if c.OCRConfig != nil {
		oc := *c.OCRConfig
		oc.Options = maps.Clone(c.OCRConfig.Options)
		out.OCRConfig = &oc
	}
	return out
}
