package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docnorm/internal/config"
	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/extract"
	"github.com/dgallion1/docnorm/internal/router"
	"github.com/dgallion1/docnorm/internal/splitter"
)

type fakeExtractor struct {
	mu   sync.Mutex
	reqs []extract.Request
	fail map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, req extract.Request) (*document.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if err := f.fail[req.Path]; err != nil {
		return nil, err
	}
	text := string(req.Data)
	if req.Data == nil {
		text = "contents of " + filepath.Base(req.Path)
	}
	return &document.ExtractionResult{
		Content:  text,
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{document.KeyTitle: "T"},
		Images:   []document.Image{{Format: "png", Filename: "fig1.png"}},
	}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(ex Extractor, params splitter.SplitParameters) *Pipeline {
	return New(NewLoader(ex), splitter.New(splitter.WithParameters(params)))
}

func TestLoaderDisablesChunkContent(t *testing.T) {
	ex := &fakeExtractor{}
	loader := NewLoader(ex)
	cfg := document.ExtractionConfig{ChunkContent: true, ForceOCR: true}

	doc, err := loader.LoadFile(context.Background(), "/docs/a.txt", WithConfig(cfg),
		WithOverrides(router.Overrides{OCRBackend: "remote"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.ChunkContent {
		t.Error("caller config was mutated")
	}
	got := ex.reqs[0]
	if got.Config.ChunkContent {
		t.Error("expected ChunkContent=false on the forwarded config")
	}
	if !got.Config.ForceOCR || got.Overrides.OCRBackend != "remote" {
		t.Errorf("options not forwarded: %+v", got)
	}
	if doc.Source != "/docs/a.txt" || doc.Text != "contents of a.txt" {
		t.Errorf("unexpected loaded doc %+v", doc)
	}
}

func TestLoadBytes(t *testing.T) {
	ex := &fakeExtractor{}
	loader := NewLoader(ex)

	if _, err := loader.LoadBytes(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("expected an error for a missing mime type")
	} else {
		var verr *document.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %T", err)
		}
	}

	doc, err := loader.LoadBytes(context.Background(), nil, "text/plain", WithMimeType("ignored/type"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Source != "" {
		t.Errorf("expected empty source for in-memory content, got %q", doc.Source)
	}
	req := ex.reqs[0]
	if req.MimeType != "text/plain" {
		t.Errorf("explicit mime type should win, got %q", req.MimeType)
	}
	if req.Data == nil {
		t.Error("expected non-nil data so the payload is used instead of a path")
	}
}

func TestBuildChunksFromBytes(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, splitter.SplitParameters{MaxCharacters: 10})

	sd, err := p.BuildChunksFromBytes(context.Background(), []byte("One two three four five six"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sd.Chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(sd.Chunks))
	}
	for i, c := range sd.Chunks {
		if c.Index != i || c.Metadata[document.KeyChunkIndex] != i {
			t.Errorf("chunk %d has index %d / %v", i, c.Index, c.Metadata[document.KeyChunkIndex])
		}
		if c.Metadata[document.KeyTitle] != "T" {
			t.Errorf("chunk %d lost document metadata: %v", i, c.Metadata)
		}
	}
	if len(sd.Images) != 1 || sd.Images[0].Filename != "fig1.png" {
		t.Errorf("images not passed through: %+v", sd.Images)
	}
}

func TestBuildChunksFromFilesKeepsOrder(t *testing.T) {
	ex := &fakeExtractor{}
	p := newTestPipeline(ex, splitter.DefaultParameters())
	paths := []string{"/d/c.txt", "/d/a.txt", "/d/b.txt"}

	docs, err := p.BuildChunksFromFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != len(paths) {
		t.Fatalf("expected %d documents, got %d", len(paths), len(docs))
	}
	for i, sd := range docs {
		if sd.Source != paths[i] {
			t.Errorf("doc %d: expected source %q, got %q", i, paths[i], sd.Source)
		}
	}
	var order []string
	for _, r := range ex.reqs {
		order = append(order, r.Path)
	}
	if !reflect.DeepEqual(order, paths) {
		t.Errorf("expected sequential processing in input order, got %v", order)
	}
}

func TestBuildChunksFromFilesStopsOnError(t *testing.T) {
	boom := &document.ParsingError{Msg: "bad file"}
	ex := &fakeExtractor{fail: map[string]error{"/d/bad.pdf": boom}}
	p := newTestPipeline(ex, splitter.DefaultParameters())

	_, err := p.BuildChunksFromFiles(context.Background(), []string{"/d/ok.txt", "/d/bad.pdf", "/d/never.txt"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped parsing error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/d/bad.pdf") {
		t.Errorf("expected path in error, got %q", err.Error())
	}
	if len(ex.reqs) != 2 {
		t.Errorf("expected processing to stop after the failure, got %d calls", len(ex.reqs))
	}
}

func TestBuildChunksFromLoaded(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, splitter.DefaultParameters())
	docs := []*document.Loaded{
		{Text: "first", MimeType: "text/plain", Metadata: document.Metadata{}, Source: "1"},
		{Text: "second", MimeType: "text/plain", Metadata: document.Metadata{}, Source: "2"},
	}
	out, err := p.BuildChunksFromLoaded(docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Source != "1" || out[1].Source != "2" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestBuildChunksWithRealService(t *testing.T) {
	reg, err := extract.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	svc := extract.NewService(reg, discard())
	p := newTestPipeline(svc, splitter.SplitParameters{MaxCharacters: 40, OverlapCharacters: 5})

	path := filepath.Join(t.TempDir(), "guide.md")
	body := "# Guide\n\nInstall the tool first.\n\n## Usage\n\nRun it with the default flags and read the output."
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	sd, err := p.BuildChunks(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sd.MimeType != document.MarkdownMimeType {
		t.Errorf("expected markdown, got %q", sd.MimeType)
	}
	if sd.Metadata[document.KeyTitle] != "Guide" {
		t.Errorf("expected title metadata, got %v", sd.Metadata)
	}
	if len(sd.Chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(sd.Chunks))
	}
	for _, c := range sd.Chunks {
		if n := len([]rune(c.Text)); n > 40 {
			t.Errorf("chunk longer than max: %d %q", n, c.Text)
		}
	}
}

func TestOrchestratorProcessesJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, newTestPipeline(&fakeExtractor{}, splitter.DefaultParameters()), discard())
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit("notes.txt", "text/plain", []byte("hello there"), document.ExtractionConfig{}, router.Overrides{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var snap JobSnapshot
	for time.Now().Before(deadline) {
		snap = o.GetJob(job.ID).Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed job, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Result == nil || len(snap.Result.Chunks) != 1 || snap.Result.Chunks[0].Text != "hello there" {
		t.Fatalf("unexpected result %+v", snap.Result)
	}
	if snap.Progress.Characters != 11 || snap.Progress.EstimatedTokens != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.Result.Source != "notes.txt" {
		t.Errorf("expected filename as source, got %q", snap.Result.Source)
	}
}

func TestOrchestratorRejectsWhenFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, newTestPipeline(&fakeExtractor{}, splitter.DefaultParameters()), discard())

	if _, err := o.Submit("a.txt", "text/plain", []byte("a"), document.ExtractionConfig{}, router.Overrides{}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job, err := o.Submit("b.txt", "text/plain", []byte("b"), document.ExtractionConfig{}, router.Overrides{})
	if err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("unexpected job state %q/%q", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}

	if _, err := o.Submit("c", "", nil, document.ExtractionConfig{}, router.Overrides{}); err == nil {
		t.Error("expected an error for a missing mime type")
	}
}

func TestWorkerRecordsFailure(t *testing.T) {
	ex := &fakeExtractor{}
	w := NewWorker(newTestPipeline(ex, splitter.SplitParameters{MaxCharacters: 10, OverlapCharacters: 10}), discard())
	job := NewJob("w-1", "x.txt", "text/plain", []byte("text"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "splitting" {
		t.Fatalf("expected split failure, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "overlap") {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if job.FileData() != nil {
		t.Error("expected upload bytes to be released")
	}
}
