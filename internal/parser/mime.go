package parser

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

var extensionMimeTypes = map[string]string{
	".txt":      document.PlainTextMimeType,
	".text":     document.PlainTextMimeType,
	".md":       document.MarkdownMimeType,
	".markdown": document.MarkdownMimeType,
	".csv":      document.CSVMimeType,
	".tsv":      "text/tab-separated-values",
	".html":     document.HTMLMimeType,
	".htm":      document.HTMLMimeType,
	".pdf":      document.PDFMimeType,
	".docx":     document.DOCXMimeType,
	".odt":      "application/vnd.oasis.opendocument.text",
	".epub":     "application/epub+zip",
	".rtf":      "application/rtf",
	".tex":      "application/x-latex",
	".latex":    "application/x-latex",
	".rst":      "text/x-rst",
	".org":      "text/x-org",
	".ipynb":    "application/x-ipynb+json",
	".bib":      "application/x-bibtex",
	".typ":      "application/x-typst",
	".fb2":      "application/x-fictionbook+xml",
	".opml":     "application/x-opml+xml",
	".ris":      "application/x-research-info-systems",
	".xml":      "application/xml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".bmp":      "image/bmp",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".webp":     "image/webp",
	".stl":      "model/stl",
	".dxf":      "image/vnd.dxf",
	".cbz":      "application/vnd.comicbook+zip",
}

// DetectMimeType guesses a mime type from the file extension. It returns
// "" when nothing matches.
func DetectMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if m, ok := extensionMimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return BaseMimeType(m)
	}
	return ""
}

// IsImage reports whether mimeType is a raster image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(BaseMimeType(mimeType), "image/") && BaseMimeType(mimeType) != "image/vnd.dxf"
}
