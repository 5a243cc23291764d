// Package pipeline composes extraction and splitting into single calls and
// runs them for uploaded files on a small worker pool.
package pipeline

import (
	"context"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/extract"
	"github.com/dgallion1/docnorm/internal/router"
)

// Extractor is the part of extract.Service the loader needs.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (*document.ExtractionResult, error)
}

// LoadOption adjusts a single load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	mimeType  string
	config    document.ExtractionConfig
	overrides router.Overrides
}

// WithMimeType sets the mime type instead of detecting it from the path.
func WithMimeType(m string) LoadOption {
	return func(o *loadOptions) { o.mimeType = m }
}

// WithConfig sets the extraction config.
func WithConfig(cfg document.ExtractionConfig) LoadOption {
	return func(o *loadOptions) { o.config = cfg }
}

// WithOverrides sets per-call backend overrides.
func WithOverrides(ov router.Overrides) LoadOption {
	return func(o *loadOptions) { o.overrides = ov }
}

// Loader extracts documents for splitting. Chunking is the splitter's
// job, so extractor-side chunking is always switched off.
type Loader struct {
	ex Extractor
}

func NewLoader(ex Extractor) *Loader {
	return &Loader{ex: ex}
}

// LoadFile extracts the file at path.
func (l *Loader) LoadFile(ctx context.Context, path string, opts ...LoadOption) (*document.Loaded, error) {
	o := resolve(opts)
	res, err := l.ex.Extract(ctx, extract.Request{
		Path:      path,
		MimeType:  o.mimeType,
		Config:    o.config,
		Overrides: o.overrides,
	})
	if err != nil {
		return nil, err
	}
	return document.NewLoaded(res, path), nil
}

// LoadBytes extracts an in-memory payload. mimeType is required.
func (l *Loader) LoadBytes(ctx context.Context, data []byte, mimeType string, opts ...LoadOption) (*document.Loaded, error) {
	if mimeType == "" {
		return nil, &document.ValidationError{Msg: "mime type required for in-memory content"}
	}
	o := resolve(append(opts, WithMimeType(mimeType)))
	if data == nil {
		data = []byte{}
	}
	res, err := l.ex.Extract(ctx, extract.Request{
		Data:      data,
		MimeType:  o.mimeType,
		Config:    o.config,
		Overrides: o.overrides,
	})
	if err != nil {
		return nil, err
	}
	return document.NewLoaded(res, ""), nil
}

func resolve(opts []LoadOption) loadOptions {
	var o loadOptions
	for _, fn := range opts {
		fn(&o)
	}
	// Work on a copy so the caller's config keeps its ChunkContent value.
	o.config = o.config.Clone()
	o.config.ChunkContent = false
	return o
}
