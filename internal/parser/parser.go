// Package parser holds the native, text-only extractors used on the
// lightweight path.
package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// Parser converts raw document bytes into an extraction result.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.ExtractionResult, error)
}

// Options tune parser construction.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForMimeType returns the parser for a mime type. Parameters such as
// charset are ignored.
func ForMimeType(mimeType string, opts Options) (Parser, error) {
	switch BaseMimeType(mimeType) {
	case document.PlainTextMimeType:
		return &TextParser{}, nil
	case document.MarkdownMimeType, "text/x-markdown":
		return &MarkdownParser{}, nil
	case document.CSVMimeType:
		return &CSVParser{}, nil
	case document.HTMLMimeType, "application/xhtml+xml":
		return &HTMLParser{}, nil
	case document.PDFMimeType:
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case document.DOCXMimeType:
		return &DOCXParser{}, nil
	case "model/stl", "application/sla", "application/vnd.ms-pki.stl", "application/x-navistyle":
		return &STLParser{}, nil
	case "image/vnd.dxf", "application/dxf", "application/x-dxf", "application/vnd.autocad.dxf":
		return &DXFParser{}, nil
	case "application/vnd.comicbook+zip", "application/x-cbz":
		return &CBZParser{}, nil
	}
	return nil, &document.ValidationError{
		Msg:     "no native parser for mime type",
		Context: map[string]string{"mime_type": mimeType},
	}
}

// Supports reports whether a native parser exists for mimeType.
func Supports(mimeType string) bool {
	_, err := ForMimeType(mimeType, Options{})
	return err == nil
}

// BaseMimeType lowercases mimeType and strips its parameters.
func BaseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
