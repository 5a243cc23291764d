package pandoc

import (
	"maps"
	"slices"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// extensions maps supported mime types to pandoc input formats.
var extensions = map[string]string{
	"application/csl+json":                    "json",
	"application/docbook+xml":                 "xml",
	"application/epub+zip":                    "epub",
	"application/rtf":                         "rtf",
	"application/vnd.oasis.opendocument.text": "odt",
	document.DOCXMimeType:                     "docx",
	"application/x-biblatex":                  "bib",
	"application/x-bibtex":                    "bib",
	"application/x-endnote+xml":               "xml",
	"application/x-fictionbook+xml":           "fb2",
	"application/x-ipynb+json":                "ipynb",
	"application/x-jats+xml":                  "xml",
	"application/x-latex":                     "tex",
	"application/x-opml+xml":                  "opml",
	"application/x-research-info-systems":     "ris",
	"application/x-typst":                     "typst",
	"application/xml":                         "xml",
	"text/csv":                                "csv",
	"text/tab-separated-values":               "tsv",
	"text/troff":                              "man",
	"text/x-commonmark":                       "md",
	"text/x-dokuwiki":                         "txt",
	"text/x-gfm":                              "md",
	"text/x-markdown":                         "md",
	"text/x-markdown-extra":                   "md",
	"text/x-mdoc":                             "mdoc",
	"text/x-multimarkdown":                    "md",
	"text/x-org":                              "org",
	"text/x-pod":                              "pod",
	"text/x-rst":                              "rst",
}

// SupportedMimeTypes returns the mime types pandoc handles, sorted.
func SupportedMimeTypes() []string {
	return slices.Sorted(maps.Keys(extensions))
}

// Supports reports whether mimeType can be converted.
func Supports(mimeType string) bool {
	_, err := Extension(mimeType)
	return err == nil
}

// Extension resolves the pandoc input format for mimeType. Parameters such
// as charset are ignored.
func Extension(mimeType string) (string, error) {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if ext, ok := extensions[base]; ok {
		return ext, nil
	}
	return "", &document.ValidationError{
		Msg: "unsupported mime type",
		Context: map[string]string{
			"mime_type":           mimeType,
			"supported_mimetypes": strings.Join(SupportedMimeTypes(), ","),
		},
	}
}
