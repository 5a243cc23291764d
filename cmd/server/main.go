package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docnorm/internal/api"
	"github.com/dgallion1/docnorm/internal/config"
	"github.com/dgallion1/docnorm/internal/extract"
	"github.com/dgallion1/docnorm/internal/ocr"
	"github.com/dgallion1/docnorm/internal/ocr/tesseract"
	"github.com/dgallion1/docnorm/internal/pandoc"
	"github.com/dgallion1/docnorm/internal/pipeline"
	"github.com/dgallion1/docnorm/internal/remoteocr"
	"github.com/dgallion1/docnorm/internal/splitter"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load(".env")

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Detect optional binaries and register OCR backends.
	features := extract.DetectFeatures(nil)
	features.Pdftotext = features.Pdftotext && cfg.PDFFallbackPdftotext

	var backends []ocr.Backend
	var tess *tesseract.Backend
	if features.Tesseract {
		tess = tesseract.New(cfg.TesseractLanguage, log)
		backends = append(backends, tess)
	}
	var remote *remoteocr.Client
	if cfg.RemoteOCREndpoint != "" {
		remote = remoteocr.New(&remoteocr.Config{
			Endpoint:       cfg.RemoteOCREndpoint,
			APIKey:         cfg.RemoteOCRAPIKey,
			Username:       cfg.RemoteOCRUsername,
			Password:       cfg.RemoteOCRPassword,
			ChunkSize:      cfg.RemoteOCRChunkSize,
			RequestTimeout: cfg.RemoteOCRTimeout,
			ExtraHeaders:   cfg.RemoteOCRExtraHeaders,
		}, log)
		backends = append(backends, remote)
	}
	registry, err := extract.NewRegistry(backends...)
	if err != nil {
		log.Error("invalid ocr backends", "error", err)
		os.Exit(1)
	}

	svc := extract.NewService(registry, log,
		extract.WithConverter(pandoc.New(log, pandoc.WithBinary(cfg.PandocBinary))),
		extract.WithFeatures(features),
		extract.WithFallbackBackend(cfg.FallbackOCRBackend()),
		extract.WithStats(extract.NewStats(cfg.StatsWindow)),
		extract.WithImageOCRLimit(cfg.ImageOCRConcurrency),
	)

	// Initialize pipeline.
	sp := splitter.New(splitter.WithParameters(splitter.SplitParameters{
		MaxCharacters:     cfg.DefaultMaxCharacters,
		OverlapCharacters: cfg.DefaultMaxOverlap,
	}))
	orch := pipeline.NewOrchestrator(cfg, pipeline.New(pipeline.NewLoader(svc), sp), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, svc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if tess != nil {
			if err := tess.Close(); err != nil {
				log.Warn("tesseract close", "error", err)
			}
		}
		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting docnorm", "port", cfg.Port,
		"ocr_backends", registry.Names(),
		"pandoc", features.Pandoc,
		"tesseract", features.Tesseract,
		"pdftotext", features.Pdftotext,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
