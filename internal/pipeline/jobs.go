package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/docnorm/internal/chunker"
	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/router"
	"github.com/dgallion1/docnorm/internal/splitter"
)

// JobStatus represents the state of a chunking job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusSplitting  JobStatus = "splitting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single uploaded document.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	MimeType string    `json:"mime_type"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Config    document.ExtractionConfig `json:"-"`
	Overrides router.Overrides          `json:"-"`

	// Internal: not serialized.
	fileData []byte
	result   *splitter.SplitDocument
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	Characters      int      `json:"characters"`
	EstimatedTokens int      `json:"estimated_tokens"`
	Images          int      `json:"images"`
	Errors          []string `json:"errors"`
}

// NewJob builds a queued job for an uploaded file.
func NewJob(id, filename, mimeType string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		MimeType:    mimeType,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult stores the split document and drops the upload bytes. text is
// the extracted text the chunks were built from.
func (j *Job) SetResult(sd *splitter.SplitDocument, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = sd
	j.fileData = nil
	j.Progress.TotalChunks = len(sd.Chunks)
	j.Progress.Characters = utf8.RuneCountInString(text)
	j.Progress.EstimatedTokens = chunker.EstimateTokens(text)
	j.Progress.Images = len(sd.Images)
	j.UpdatedAt = time.Now()
}

// Result returns the split document once the job has completed.
func (j *Job) Result() *splitter.SplitDocument {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ReleaseFileData drops the upload bytes.
func (j *Job) ReleaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string                  `json:"job_id"`
	Status      JobStatus               `json:"status"`
	Phase       string                  `json:"phase"`
	Filename    string                  `json:"filename"`
	MimeType    string                  `json:"mime_type"`
	ContentHash string                  `json:"content_hash,omitempty"`
	Progress    Progress                `json:"progress"`
	Result      *splitter.SplitDocument `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		MimeType:    j.MimeType,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalChunks:     j.Progress.TotalChunks,
			Characters:      j.Progress.Characters,
			EstimatedTokens: j.Progress.EstimatedTokens,
			Images:          j.Progress.Images,
			Errors:          slices.Clone(errs),
		},
		Result: j.result,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
