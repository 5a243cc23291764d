// Package remoteocr is an OCR backend that posts documents to a remote
// OCR service over HTTP.
package remoteocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/docnorm/internal/document"
)

// Name is the registry identifier of this backend.
const Name = "remote"

const (
	DefaultChunkSize      = 512 * 1024
	DefaultRequestTimeout = 60 * time.Second
)

// Config describes how to reach the OCR service.
type Config struct {
	Endpoint string
	APIKey   string

	// Basic auth is sent only when both are set.
	Username string
	Password string

	// ChunkSize is the streaming write size in bytes. It must be positive;
	// NewConfig sets DefaultChunkSize.
	ChunkSize int

	// RequestTimeout bounds one request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	ExtraHeaders map[string]string
}

// NewConfig returns a config for endpoint with the default chunk size and
// timeout.
func NewConfig(endpoint string) Config {
	return Config{
		Endpoint:       endpoint,
		ChunkSize:      DefaultChunkSize,
		RequestTimeout: DefaultRequestTimeout,
	}
}

func (c Config) resolved() (Config, error) {
	if c.Endpoint == "" {
		return c, &document.ValidationError{Msg: "remote ocr endpoint is required"}
	}
	if c.ChunkSize <= 0 {
		return c, &document.ValidationError{
			Msg:     "chunk size must be positive",
			Context: map[string]string{"chunk_size": strconv.Itoa(c.ChunkSize)},
		}
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c, nil
}

// Client communicates with the remote OCR service.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger
}

// New returns a client. cfg may be nil, in which case every call must
// supply a config or an endpoint.
func New(cfg *Config, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        log,
	}
}

func (c *Client) Name() string { return Name }

// CallOption adjusts a single request.
type CallOption func(*call)

type call struct {
	cfg      *Config
	endpoint string
	mimeType string
}

// WithConfig replaces the client's config for one call.
func WithConfig(cfg Config) CallOption {
	return func(c *call) { c.cfg = &cfg }
}

// WithEndpoint names the endpoint when neither the call nor the client
// carries a config.
func WithEndpoint(endpoint string) CallOption {
	return func(c *call) { c.endpoint = endpoint }
}

// WithMimeType overrides mime type detection.
func WithMimeType(mimeType string) CallOption {
	return func(c *call) { c.mimeType = mimeType }
}

func (c *Client) configFor(cl call) (Config, error) {
	switch {
	case cl.cfg != nil:
		return cl.cfg.resolved()
	case c.cfg != nil:
		return c.cfg.resolved()
	}
	return NewConfig(cl.endpoint).resolved()
}

// ProcessImage sends encoded image bytes.
func (c *Client) ProcessImage(ctx context.Context, data []byte, _ *document.OCRConfig) (*document.ExtractionResult, error) {
	return c.ProcessImageWith(ctx, data)
}

// ProcessFile streams the file at path.
func (c *Client) ProcessFile(ctx context.Context, path string, _ *document.OCRConfig) (*document.ExtractionResult, error) {
	return c.ProcessFileWith(ctx, path)
}

// ProcessImageWith sends image bytes with per-call options. Without a
// mime type option the type is sniffed from the content.
func (c *Client) ProcessImageWith(ctx context.Context, data []byte, opts ...CallOption) (*document.ExtractionResult, error) {
	cl := call{mimeType: http.DetectContentType(data)}
	for _, opt := range opts {
		opt(&cl)
	}
	return c.post(ctx, bytes.NewReader(data), cl)
}

// ProcessFileWith streams path with per-call options. Without a mime type
// option the type is guessed from the extension.
func (c *Client) ProcessFileWith(ctx context.Context, path string, opts ...CallOption) (*document.ExtractionResult, error) {
	cl := call{mimeType: DetectMimeType(path)}
	for _, opt := range opts {
		opt(&cl)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return c.post(ctx, f, cl)
}

// DetectMimeType guesses from the file extension and falls back to
// application/octet-stream.
func DetectMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (c *Client) post(ctx context.Context, body io.Reader, cl call) (*document.ExtractionResult, error) {
	cfg, err := c.configFor(cl)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	stream := streamBody(body, cfg.ChunkSize)
	defer stream.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, stream)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", cl.mimeType)
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	for k, v := range cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}
	if cfg.Username != "" && cfg.Password != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &document.OCRError{
			Msg:     "remote ocr request failed",
			Context: map[string]string{"endpoint": cfg.Endpoint},
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &document.OCRError{
			Msg:     "read remote ocr response",
			Context: map[string]string{"endpoint": cfg.Endpoint},
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &document.OCRError{
			Msg: "remote ocr returned an error status",
			Context: map[string]string{
				"endpoint": cfg.Endpoint,
				"status":   strconv.Itoa(resp.StatusCode),
				"body":     truncate(string(respBody), 200),
			},
		}
	}

	res, err := ParseResponse(respBody)
	if err != nil {
		return nil, &document.OCRError{
			Msg:     "decode remote ocr response",
			Context: map[string]string{"endpoint": cfg.Endpoint},
			Err:     err,
		}
	}
	c.log.Debug("remote ocr complete",
		"endpoint", cfg.Endpoint,
		"mime_type", cl.mimeType,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
