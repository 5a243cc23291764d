// Package extract turns a file or byte payload into an ExtractionResult by
// routing it to a native parser, the pandoc converter or an OCR backend.
package extract

import (
	"fmt"
	"maps"
	"os/exec"
	"slices"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/ocr"
)

// Registry holds the OCR backends available to a Service, keyed by their
// Name. It is built once at startup and read-only afterwards.
type Registry struct {
	backends map[string]ocr.Backend
}

// NewRegistry registers backends in order. Duplicate names are an error.
func NewRegistry(backends ...ocr.Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]ocr.Backend, len(backends))}
	for _, b := range backends {
		if _, dup := r.backends[b.Name()]; dup {
			return nil, fmt.Errorf("ocr backend %q registered twice", b.Name())
		}
		r.backends[b.Name()] = b
	}
	return r, nil
}

// Backend returns the backend registered under id.
func (r *Registry) Backend(id string) (ocr.Backend, error) {
	if b, ok := r.backends[id]; ok {
		return b, nil
	}
	return nil, &document.MissingDependencyError{
		Msg: "ocr backend not available",
		Context: map[string]string{
			"backend":   id,
			"available": fmt.Sprint(r.Names()),
		},
	}
}

// Names lists the registered backend ids, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.backends))
}

// Features records which external binaries were found at startup.
type Features struct {
	Pandoc    bool `json:"pandoc"`
	Tesseract bool `json:"tesseract"`
	Pdftotext bool `json:"pdftotext"`
}

// DetectFeatures probes PATH for the external tools. lookPath is
// exec.LookPath when nil.
func DetectFeatures(lookPath func(string) (string, error)) Features {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	found := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}
	return Features{
		Pandoc:    found("pandoc"),
		Tesseract: found("tesseract"),
		Pdftotext: found("pdftotext"),
	}
}
