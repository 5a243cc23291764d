package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docnorm/internal/chunker"
	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/pandoc"
	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/router"
	"github.com/dgallion1/docnorm/internal/splitter"
	"golang.org/x/sync/errgroup"
)

// Route labels used for stats and logs.
const (
	RouteNative = "native"
	RoutePandoc = "pandoc"
)

// Converter is the document conversion collaborator.
type Converter interface {
	ProcessFile(ctx context.Context, path, mimeType string, extraArgs ...string) (*document.ExtractionResult, error)
	ProcessContent(ctx context.Context, data []byte, mimeType string, extraArgs ...string) (*document.ExtractionResult, error)
}

// nativeFirst lists mimes pandoc could convert but the native parsers
// handle well enough on their own.
var nativeFirst = map[string]bool{
	document.CSVMimeType: true,
}

// Request is one extraction call. Exactly one of Path and Data is used;
// Data wins when both are set.
type Request struct {
	Path      string
	Data      []byte
	MimeType  string
	Config    document.ExtractionConfig
	Overrides router.Overrides
}

func (r Request) name() string {
	if r.Path != "" {
		return filepath.Base(r.Path)
	}
	return "content"
}

// Service routes extraction requests to parsers, pandoc or OCR backends.
type Service struct {
	registry  *Registry
	converter Converter
	features  Features
	fallback  string
	stats     *Stats
	log       *slog.Logger

	imageOCRLimit int
}

type Option func(*Service)

// WithConverter enables pandoc conversion. It is only used when the
// Pandoc feature flag is set.
func WithConverter(c Converter) Option {
	return func(s *Service) { s.converter = c }
}

// WithFeatures sets the feature flags detected at startup.
func WithFeatures(f Features) Option {
	return func(s *Service) { s.features = f }
}

// WithFallbackBackend names the backend substituted when callers do not
// pick one.
func WithFallbackBackend(id string) Option {
	return func(s *Service) { s.fallback = id }
}

// WithImageOCRLimit bounds how many extracted images are recognized at
// once. Values below one mean one at a time.
func WithImageOCRLimit(n int) Option {
	return func(s *Service) { s.imageOCRLimit = n }
}

// WithStats records per-route latencies into st.
func WithStats(st *Stats) Option {
	return func(s *Service) { s.stats = st }
}

func NewService(registry *Registry, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		log:      log,
	}
	for _, o := range opts {
		o(s)
	}
	if s.stats == nil {
		s.stats = NewStats(time.Hour)
	}
	s.imageOCRLimit = max(s.imageOCRLimit, 1)
	return s
}

// Stats returns the latency tracker.
func (s *Service) Stats() *Stats { return s.stats }

// Features returns the feature flags the service was built with.
func (s *Service) Features() Features { return s.features }

// Extract runs one request through the router and the selected extractor.
func (s *Service) Extract(ctx context.Context, req Request) (*document.ExtractionResult, error) {
	mimeType := parser.BaseMimeType(req.MimeType)
	if mimeType == "" && req.Path != "" {
		mimeType = parser.DetectMimeType(req.Path)
	}
	if mimeType == "" {
		return nil, &document.ValidationError{
			Msg:     "mime type required",
			Context: map[string]string{"file": req.name()},
		}
	}

	dec := router.Route(req.Config, req.Overrides, s.fallback)
	if parser.IsImage(mimeType) {
		// An image has no text layer, so it always takes the OCR path.
		dec = router.Decision{
			Strategy: router.Full,
			Config:   router.ResolveBackends(req.Config, req.Overrides, s.fallback),
		}
	}
	log := s.log.With("file", req.name(), "mime_type", mimeType, "strategy", dec.Strategy)

	start := time.Now()
	res, route, err := s.dispatch(ctx, req, mimeType, dec)
	s.stats.Record(route, time.Since(start), err != nil)
	if err != nil {
		log.Error("extraction failed", "route", route, "error", err)
		return nil, err
	}

	if dec.Strategy == router.Full {
		if err := s.enrich(ctx, req, mimeType, dec.Config, res); err != nil {
			log.Error("image pass failed", "route", route, "error", err)
			return nil, err
		}
	}
	if res.Metadata == nil {
		res.Metadata = document.Metadata{}
	}
	if dec.Config.ChunkContent {
		res.Chunks = chunker.Split(res.Content, chunker.Config{
			MaxCharacters:     splitter.DefaultMaxCharacters,
			OverlapCharacters: splitter.DefaultMaxOverlap,
			Markdown:          parser.BaseMimeType(res.MimeType) == document.MarkdownMimeType,
		})
	}

	log.Info("extracted", "route", route, "chars", len(res.Content), "images", len(res.Images),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, req Request, mimeType string, dec router.Decision) (*document.ExtractionResult, string, error) {
	cfg := dec.Config
	switch {
	case parser.IsImage(mimeType):
		return s.recognize(ctx, req, cfg.OCRBackend, cfg.OCRConfig)
	case mimeType == document.PDFMimeType && dec.Strategy == router.Full:
		return s.recognize(ctx, req, cfg.OCRBackend, cfg.OCRConfig)
	case s.usePandoc(mimeType):
		var res *document.ExtractionResult
		var err error
		if req.Data != nil {
			res, err = s.converter.ProcessContent(ctx, req.Data, mimeType)
		} else {
			res, err = s.converter.ProcessFile(ctx, req.Path, mimeType)
		}
		return res, RoutePandoc, err
	}

	p, err := parser.ForMimeType(mimeType, parser.Options{PDFFallbackPdftotext: s.features.Pdftotext})
	if err != nil {
		if pandoc.Supports(mimeType) {
			return nil, RouteNative, &document.MissingDependencyError{
				Msg:     "pandoc is required for this mime type",
				Context: map[string]string{"mime_type": mimeType},
			}
		}
		return nil, RouteNative, err
	}
	data, err := s.payload(req)
	if err != nil {
		return nil, RouteNative, err
	}
	res, err := p.Parse(bytes.NewReader(data), req.name())
	return res, RouteNative, err
}

func (s *Service) usePandoc(mimeType string) bool {
	return s.features.Pandoc && s.converter != nil && pandoc.Supports(mimeType) && !nativeFirst[mimeType]
}

func (s *Service) recognize(ctx context.Context, req Request, backendID string, cfg *document.OCRConfig) (*document.ExtractionResult, string, error) {
	b, err := s.registry.Backend(backendID)
	if err != nil {
		return nil, backendID, err
	}
	var res *document.ExtractionResult
	if req.Data != nil {
		res, err = b.ProcessImage(ctx, req.Data, cfg)
	} else {
		res, err = b.ProcessFile(ctx, req.Path, cfg)
	}
	return res, b.Name(), err
}

func (s *Service) payload(req Request) ([]byte, error) {
	if req.Data != nil {
		return req.Data, nil
	}
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	return data, nil
}

// ImageOCRResult is one entry of the image_ocr_results extra.
type ImageOCRResult struct {
	Filename   string            `json:"filename,omitempty"`
	PageNumber int               `json:"page_number,omitempty"`
	Content    string            `json:"content"`
	Metadata   document.Metadata `json:"metadata,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// enrich attaches embedded images and, when image OCR is enabled, runs the
// image OCR backend over them.
func (s *Service) enrich(ctx context.Context, req Request, mimeType string, cfg document.ExtractionConfig, res *document.ExtractionResult) error {
	wantImages := cfg.ExtractImages || cfg.ImageOCREnabled()
	if wantImages && len(res.Images) == 0 && !parser.IsImage(mimeType) {
		p, err := parser.ForMimeType(mimeType, parser.Options{})
		if ie, ok := p.(parser.ImageExtractor); ok && err == nil {
			data, err := s.payload(req)
			if err != nil {
				return err
			}
			if res.Images, err = ie.Images(data); err != nil {
				return err
			}
		}
	}
	if !cfg.ImageOCREnabled() || len(res.Images) == 0 {
		return nil
	}

	backendID := cfg.ImageOCRBackend
	if backendID == "" {
		backendID = cfg.OCRBackend
	}
	b, err := s.registry.Backend(backendID)
	if err != nil {
		return err
	}
	ocrCfg := &document.OCRConfig{}
	if cfg.OCRConfig != nil {
		ocrCfg = cfg.OCRConfig
	}
	if cfg.ImageOCRConfig != nil && cfg.ImageOCRConfig.Language != "" {
		ocrCfg = &document.OCRConfig{Language: cfg.ImageOCRConfig.Language, Options: ocrCfg.Options}
	}

	results := make([]ImageOCRResult, len(res.Images))
	var g errgroup.Group
	g.SetLimit(s.imageOCRLimit)
	for i, img := range res.Images {
		results[i] = ImageOCRResult{Filename: img.Filename, PageNumber: img.PageNumber}
		g.Go(func() error {
			out, err := b.ProcessImage(ctx, img.Data, ocrCfg)
			if err != nil {
				s.log.Warn("image ocr failed", "image", img.Filename, "backend", b.Name(), "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Content = out.Content
			results[i].Metadata = out.Metadata
			return nil
		})
	}
	g.Wait()

	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode image ocr results: %w", err)
	}
	if res.Extras == nil {
		res.Extras = map[string]json.RawMessage{}
	}
	res.Extras["image_ocr_results"] = raw
	return nil
}
