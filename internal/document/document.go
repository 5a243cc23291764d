// Package document holds the data model shared by every extraction and
// splitting stage: extraction results, metadata, images, tables and the
// loaded-document view handed to the splitter.
package document

import (
	"encoding/json"
	"maps"
)

const (
	PlainTextMimeType = "text/plain"
	MarkdownMimeType  = "text/markdown"
	HTMLMimeType      = "text/html"
	CSVMimeType       = "text/csv"
	PDFMimeType       = "application/pdf"
	DOCXMimeType      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Recognized metadata keys.
const (
	KeyTitle        = "title"
	KeySubtitle     = "subtitle"
	KeyAbstract     = "abstract"
	KeyAuthors      = "authors"
	KeyDate         = "date"
	KeySubject      = "subject"
	KeyDescription  = "description"
	KeyKeywords     = "keywords"
	KeyCategories   = "categories"
	KeyVersion      = "version"
	KeyLanguage     = "language"
	KeyReferences   = "references"
	KeyCitations    = "citations"
	KeyCopyright    = "copyright"
	KeyLicense      = "license"
	KeyIdentifier   = "identifier"
	KeyPublisher    = "publisher"
	KeyContributors = "contributors"
	KeyCreator      = "creator"
	KeyInstitute    = "institute"

	KeyChunkIndex   = "chunk_index"
	KeySourceFormat = "source_format"
	KeyWidth        = "width"
	KeyHeight       = "height"
)

// Metadata maps string keys to extracted values. Values produced by the
// metadata walker are string or []string; format summarizers may also
// store counts and nested maps.
type Metadata map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// Normalize returns a copy without nil values, empty strings or empty
// containers.
func (m Metadata) Normalize() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		if isEmpty(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case map[string]int:
		return len(t) == 0
	case Metadata:
		return len(t) == 0
	}
	return false
}

// Image is an image pulled out of a document.
type Image struct {
	Data        []byte `json:"data"`
	Format      string `json:"format"`
	Filename    string `json:"filename,omitempty"`
	PageNumber  int    `json:"page_number,omitempty"`
	Description string `json:"description,omitempty"`
}

// Table is a table recovered from a document.
type Table struct {
	Cells      [][]string `json:"cells,omitempty"`
	Markdown   string     `json:"markdown"`
	PageNumber int        `json:"page_number,omitempty"`
}

// ExtractionResult is the normalized output of one extraction call.
type ExtractionResult struct {
	Content  string   `json:"content"`
	MimeType string   `json:"mime_type"`
	Metadata Metadata `json:"metadata"`
	Images   []Image  `json:"images,omitempty"`
	Tables   []Table  `json:"tables,omitempty"`
	Chunks   []string `json:"chunks,omitempty"`

	// Extras carries optional fields a backend returned verbatim, such as
	// entities or layout information from a remote OCR service.
	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// Loaded is an extracted document as handed to the splitter.
type Loaded struct {
	Text     string
	MimeType string
	Metadata Metadata
	Images   []Image

	// Source is the originating file path, empty for in-memory input.
	Source string

	Raw *ExtractionResult
}

// NewLoaded builds a Loaded view over res. Metadata and images are copied
// so callers can mutate them without touching res.
func NewLoaded(res *ExtractionResult, source string) *Loaded {
	images := make([]Image, len(res.Images))
	copy(images, res.Images)
	return &Loaded{
		Text:     res.Content,
		MimeType: res.MimeType,
		Metadata: res.Metadata.Clone(),
		Images:   images,
		Source:   source,
		Raw:      res,
	}
}
