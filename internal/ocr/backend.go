package ocr

import (
	"context"

	"github.com/dgallion1/docnorm/internal/document"
)

// Backend recognizes text in images and image-like files.
type Backend interface {
	Name() string
	ProcessImage(ctx context.Context, data []byte, cfg *document.OCRConfig) (*document.ExtractionResult, error)
	ProcessFile(ctx context.Context, path string, cfg *document.OCRConfig) (*document.ExtractionResult, error)
}

// Outcome is the single value delivered by the async helpers.
type Outcome struct {
	Result *document.ExtractionResult
	Err    error
}

// ProcessImageAsync runs b.ProcessImage in a goroutine. The returned
// channel yields exactly one Outcome and is then closed.
func ProcessImageAsync(ctx context.Context, b Backend, data []byte, cfg *document.OCRConfig) <-chan Outcome {
	return async(func() (*document.ExtractionResult, error) {
		return b.ProcessImage(ctx, data, cfg)
	})
}

// ProcessFileAsync runs b.ProcessFile in a goroutine. The returned channel
// yields exactly one Outcome and is then closed.
func ProcessFileAsync(ctx context.Context, b Backend, path string, cfg *document.OCRConfig) <-chan Outcome {
	return async(func() (*document.ExtractionResult, error) {
		return b.ProcessFile(ctx, path, cfg)
	})
}

func async(fn func() (*document.ExtractionResult, error)) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := fn()
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}
