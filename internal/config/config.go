package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Splitting defaults
	DefaultMaxCharacters int
	DefaultMaxOverlap    int

	// Job state
	JobTTL time.Duration

	// Extraction
	PDFFallbackPdftotext bool
	TesseractLanguage    string
	PandocBinary         string
	StatsWindow          time.Duration
	ImageOCRConcurrency  int

	// Remote OCR. The remote backend is registered only when an endpoint
	// is set.
	RemoteOCREndpoint      string
	RemoteOCRAPIKey        string
	RemoteOCRUsername      string
	RemoteOCRPassword      string
	RemoteOCRChunkSize     int
	RemoteOCRTimeout       time.Duration
	RemoteOCRExtraHeaders  map[string]string
	FallbackOCRBackendName string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCNORM_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultMaxCharacters: envInt("DEFAULT_MAX_CHARACTERS", 2000),
		DefaultMaxOverlap:    envInt("DEFAULT_MAX_OVERLAP", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		TesseractLanguage:    envOr("TESSERACT_LANGUAGE", "eng"),
		PandocBinary:         envOr("PANDOC_BINARY", "pandoc"),
		StatsWindow:          envDuration("STATS_WINDOW", 1*time.Hour),
		ImageOCRConcurrency:  envInt("IMAGE_OCR_CONCURRENCY", 2),

		RemoteOCREndpoint:      os.Getenv("REMOTE_OCR_ENDPOINT"),
		RemoteOCRAPIKey:        os.Getenv("REMOTE_OCR_API_KEY"),
		RemoteOCRUsername:      os.Getenv("REMOTE_OCR_USERNAME"),
		RemoteOCRPassword:      os.Getenv("REMOTE_OCR_PASSWORD"),
		RemoteOCRChunkSize:     envInt("REMOTE_OCR_CHUNK_SIZE", 512*1024),
		RemoteOCRTimeout:       envDuration("REMOTE_OCR_TIMEOUT", 60*time.Second),
		RemoteOCRExtraHeaders:  envHeaders("REMOTE_OCR_EXTRA_HEADERS"),
		FallbackOCRBackendName: os.Getenv("OCR_FALLBACK_BACKEND"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultMaxCharacters <= 0 {
		cfg.DefaultMaxCharacters = 2000
	}
	if cfg.DefaultMaxOverlap < 0 {
		cfg.DefaultMaxOverlap = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.ImageOCRConcurrency <= 0 {
		cfg.ImageOCRConcurrency = 1
	}
	if cfg.RemoteOCRTimeout <= 0 {
		cfg.RemoteOCRTimeout = 60 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCNORM_API_KEY is required")
	}
	if c.DefaultMaxOverlap >= c.DefaultMaxCharacters {
		return fmt.Errorf("DEFAULT_MAX_OVERLAP (%d) must be below DEFAULT_MAX_CHARACTERS (%d)", c.DefaultMaxOverlap, c.DefaultMaxCharacters)
	}
	if c.RemoteOCRChunkSize <= 0 {
		return fmt.Errorf("REMOTE_OCR_CHUNK_SIZE must be positive, got %d", c.RemoteOCRChunkSize)
	}
	if (c.RemoteOCRUsername == "") != (c.RemoteOCRPassword == "") {
		return fmt.Errorf("REMOTE_OCR_USERNAME and REMOTE_OCR_PASSWORD must be set together")
	}
	if c.FallbackOCRBackendName == "remote" && c.RemoteOCREndpoint == "" {
		return fmt.Errorf("OCR_FALLBACK_BACKEND=remote requires REMOTE_OCR_ENDPOINT")
	}
	return nil
}

// FallbackOCRBackend is the backend substituted when a request does not
// name one: OCR_FALLBACK_BACKEND if set, else "remote" when a remote
// endpoint is configured, else none.
func (c Config) FallbackOCRBackend() string {
	if c.FallbackOCRBackendName != "" {
		return c.FallbackOCRBackendName
	}
	if c.RemoteOCREndpoint != "" {
		return "remote"
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envHeaders parses "Name: value; Other: value" pairs. Malformed pairs
// are skipped.
func envHeaders(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := map[string]string{}
	for pair := range strings.SplitSeq(v, ";") {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}
