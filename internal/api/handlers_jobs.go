package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleSubmitJobs queues one "file" part or several "files" parts for
// asynchronous extraction and splitting.
func (s *Server) handleSubmitJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	cfg, ov, err := formOptions(r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	files := r.MultipartForm.File["files"]
	files = append(files, r.MultipartForm.File["file"]...)
	if len(files) == 0 {
		jsonError(w, "file or files is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	queued := 0
	for _, fh := range files {
		up, err := s.readUpload(r, fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}

		job, err := s.orchestrator.Submit(up.Filename, up.MimeType, up.Data, cfg, ov)
		if err != nil {
			entry := map[string]any{"filename": up.Filename, "error": err.Error()}
			if job != nil {
				entry["job_id"] = job.ID
			}
			results = append(results, entry)
			continue
		}
		queued++
		results = append(results, map[string]any{
			"job_id":   job.ID,
			"filename": up.Filename,
			"status":   job.Snapshot().Status,
			"poll_url": "/api/jobs/" + job.ID,
		})
	}

	code := http.StatusAccepted
	switch {
	case queued > 0:
	case allRejected(results):
		code = http.StatusBadRequest
	default:
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"jobs": results})
}

// allRejected reports whether every file failed before a job was created.
func allRejected(results []map[string]any) bool {
	for _, r := range results {
		if _, ok := r["job_id"]; ok {
			return false
		}
	}
	return true
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
