package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Worker processes a single document job.
type Worker struct {
	pipeline *Pipeline
	log      *slog.Logger
}

func NewWorker(p *Pipeline, log *slog.Logger) *Worker {
	return &Worker{pipeline: p, log: log}
}

// Process extracts and splits the job's upload. Failures are recorded on
// the job; nothing is retried.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "mime_type", job.MimeType)
	start := time.Now()

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	doc, err := w.pipeline.Loader().LoadBytes(ctx, job.FileData(), job.MimeType,
		WithConfig(job.Config), WithOverrides(job.Overrides))
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(err.Error())
		job.ReleaseFileData()
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	doc.Source = job.Filename

	// Phase 2: Split
	job.SetStatus(StatusSplitting, "splitting")
	sd, err := w.pipeline.Splitter().Split(doc)
	if err != nil {
		log.Error("split failed", "error", err)
		job.AddError(err.Error())
		job.ReleaseFileData()
		job.SetStatus(StatusFailed, "splitting")
		return
	}

	job.SetResult(sd, doc.Text)
	if len(sd.Chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
	}
	job.SetStatus(StatusCompleted, "done")
	snap := job.Snapshot()
	log.Info("job complete", "chunks", len(sd.Chunks), "images", len(sd.Images),
		"estimated_tokens", snap.Progress.EstimatedTokens,
		"duration_ms", time.Since(start).Milliseconds())
}
