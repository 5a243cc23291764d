package pipeline

import (
	"context"
	"fmt"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/splitter"
)

// Pipeline runs load then split.
type Pipeline struct {
	loader   *Loader
	splitter *splitter.TextSplitter
}

func New(loader *Loader, sp *splitter.TextSplitter) *Pipeline {
	return &Pipeline{loader: loader, splitter: sp}
}

// Loader returns the pipeline's loader.
func (p *Pipeline) Loader() *Loader { return p.loader }

// Splitter returns the pipeline's splitter.
func (p *Pipeline) Splitter() *splitter.TextSplitter { return p.splitter }

// BuildChunks loads the file at path and splits it.
func (p *Pipeline) BuildChunks(ctx context.Context, path string, opts ...LoadOption) (*splitter.SplitDocument, error) {
	doc, err := p.loader.LoadFile(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return p.splitter.Split(doc)
}

// BuildChunksFromBytes loads an in-memory payload and splits it.
func (p *Pipeline) BuildChunksFromBytes(ctx context.Context, data []byte, mimeType string, opts ...LoadOption) (*splitter.SplitDocument, error) {
	doc, err := p.loader.LoadBytes(ctx, data, mimeType, opts...)
	if err != nil {
		return nil, err
	}
	return p.splitter.Split(doc)
}

// BuildChunksFromLoaded splits documents that were already loaded.
func (p *Pipeline) BuildChunksFromLoaded(docs []*document.Loaded) ([]*splitter.SplitDocument, error) {
	return p.splitter.SplitMany(docs)
}

// BuildChunksFromFiles processes paths one after another, in order. It
// stops at the first failure.
func (p *Pipeline) BuildChunksFromFiles(ctx context.Context, paths []string, opts ...LoadOption) ([]*splitter.SplitDocument, error) {
	out := make([]*splitter.SplitDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sd, err := p.BuildChunks(ctx, path, opts...)
		if err != nil {
			return nil, fmt.Errorf("build chunks for %s: %w", path, err)
		}
		out = append(out, sd)
	}
	return out, nil
}
