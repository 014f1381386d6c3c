package jobModel

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/plantdex/plantdex/internal/domain/docModel"
)

type JobState string
type InternalStatus string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStatePartial    JobState = "partial"
	JobStateFailed     JobState = "failed"

	StepAccepted  InternalStatus = "Accepted"
	StepFetching  InternalStatus = "FetchingArchive"
	StepUnpacking InternalStatus = "Unpacking"
	StepParsing   InternalStatus = "Parsing"
	StepDone      InternalStatus = "Done"
	StepError     InternalStatus = "Error"

	// failure causes carried in IngestJob.Error
	CauseHashMismatch = "hash_mismatch"
	CauseCancelled    = "cancelled"
	CauseUnpack       = "unpack_failed"
	CauseFetch        = "archive_fetch_failed"
)

// FileCounters tracks per-file progress inside one job. The invariant
// Processed+Failed <= Total holds at all times and becomes equality at a
// terminal state.
type FileCounters struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type JobError struct {
	Cause   string `json:"cause"`
	Message string `json:"message"`
	Retry   bool   `json:"can_retry"`
}

// IngestJob is created by the orchestrator on acceptance and mutated only by
// it. Reaching completed, partial or failed is terminal.
type IngestJob struct {
	JobID       string            `json:"job_id"`
	TraceID     string            `json:"trace_id"`
	Manifest    docModel.Manifest `json:"manifest"`
	ArchivePath string            `json:"archive_path"`
	ArchiveHash string            `json:"archive_hash"`
	State       JobState          `json:"state"`
	CurrentStep InternalStatus    `json:"current_step"`
	Files       FileCounters      `json:"files"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
	Error       *JobError         `json:"error,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j *IngestJob) Terminal() bool {
	switch j.State {
	case JobStateCompleted, JobStatePartial, JobStateFailed:
		return true
	}
	return false
}

// NewJobID returns a ULID: lexicographic order follows creation time, which
// keeps job listings sorted without a secondary index.
func NewJobID() string {
	return ulid.Make().String()
}

// ListFilter narrows JobStore listings.
type ListFilter struct {
	ProjectID string
	State     JobState
	Limit     int
}

type JobStore interface {
	GetJob(ctx context.Context, jobID string) (IngestJob, bool)
	SaveJob(ctx context.Context, job IngestJob) error
	DeleteJob(ctx context.Context, jobID string)
	ListJobs(ctx context.Context, filter ListFilter) []IngestJob
}
