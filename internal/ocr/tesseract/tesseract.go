// Package tesseract is an OCR backend on top of the Tesseract engine.
//
// It requires Tesseract and its language data to be installed. On
// Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/ocr"
)

// Name is the registry identifier of this backend.
const Name = document.DefaultOCRBackend

// engine serializes access to one gosseract client; the client is not
// safe for concurrent use.
type engine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
}

// Backend recognizes words with Tesseract and rebuilds reading order with
// the spatial reconstructor.
type Backend struct {
	language string
	engine   *ocr.Lazy[*engine]
	rec      ocr.Reconstructor
	log      *slog.Logger
}

// New returns a backend whose engine is started on first use.
func New(language string, log *slog.Logger) *Backend {
	b := &Backend{
		language: NormalizeLanguage(language),
		log:      log,
	}
	b.engine = ocr.NewLazy(b.start)
	return b
}

func (b *Backend) Name() string { return Name }

func (b *Backend) start(ctx context.Context) (*engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(splitLanguages(b.language)...); err != nil {
		client.Close()
		return nil, &document.OCRError{
			Msg:     "initialize tesseract",
			Context: map[string]string{"language": b.language},
			Err:     err,
		}
	}
	b.log.Info("tesseract engine ready", "language", b.language)
	return &engine{client: client, language: b.language}, nil
}

// ProcessImage recognizes text in an encoded image.
func (b *Backend) ProcessImage(ctx context.Context, data []byte, cfg *document.OCRConfig) (*document.ExtractionResult, error) {
	e, err := b.engine.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	language := b.language
	if cfg != nil && cfg.Language != "" {
		language = NormalizeLanguage(cfg.Language)
	}

	boxes, err := e.recognize(data, language)
	if err != nil {
		return nil, err
	}

	width, height := dimensions(data)
	rec := b.rec.Reconstruct([][]ocr.Box{boxes}, width, height)
	b.log.Debug("tesseract recognized image",
		"boxes", len(boxes),
		"mean_confidence", rec.MeanConfidence(),
	)
	return rec.Result(), nil
}

// ProcessFile reads path and recognizes it as an image.
func (b *Backend) ProcessFile(ctx context.Context, path string, cfg *document.OCRConfig) (*document.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return b.ProcessImage(ctx, data, cfg)
}

// Close releases the engine if it was started.
func (b *Backend) Close() error {
	e, ok := b.engine.Peek()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

func (e *engine) recognize(data []byte, language string) ([]ocr.Box, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if language != e.language {
		if err := e.client.SetLanguage(splitLanguages(language)...); err != nil {
			return nil, &document.OCRError{Msg: "set language", Context: map[string]string{"language": language}, Err: err}
		}
		e.language = language
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, &document.OCRError{Msg: "set image", Err: err}
	}
	words, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &document.OCRError{Msg: "recognize words", Err: err}
	}

	boxes := make([]ocr.Box, 0, len(words))
	for _, w := range words {
		r := w.Box
		boxes = append(boxes, ocr.RectBox(
			float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y),
			strings.TrimSpace(w.Word), w.Confidence/100.0,
		))
	}
	return boxes, nil
}

// dimensions decodes only the image header. Unknown formats report 0x0.
func dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
