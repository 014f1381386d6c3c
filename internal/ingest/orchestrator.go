package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/plantdex/plantdex/internal/chunker"
	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/embedding"
	"github.com/plantdex/plantdex/internal/job"
	"github.com/plantdex/plantdex/internal/metrics"
	"github.com/plantdex/plantdex/internal/objectStore"
	"github.com/plantdex/plantdex/internal/parser"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

// ArchiveUploadRequest is the accepted intake contract. The archive must
// already sit in the object store under ArchivePath.
type ArchiveUploadRequest struct {
	Manifest    docModel.Manifest `json:"manifest"`
	ArchivePath string            `json:"archive_path"`
	ArchiveSize int64             `json:"archive_size"`
	ArchiveHash string            `json:"archive_hash"`
}

// Orchestrator accepts archive jobs and drives them through
// parse, chunk, embed and upsert. It is the single writer of every job
// record it accepts.
type Orchestrator struct {
	jobs     *job.Service
	objects  objectStore.Store
	parser   *parser.Parser
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	vectors  vectorStore.Store
	lex      *lexical.Index
	cfg      config.Settings
	logger   *logger_i.Logger

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

func NewOrchestrator(jobs *job.Service, objects objectStore.Store, p *parser.Parser, ch *chunker.Chunker,
	embedder embedding.Embedder, vectors vectorStore.Store, lex *lexical.Index, cfg config.Settings) *Orchestrator {
	return &Orchestrator{
		jobs:     jobs,
		objects:  objects,
		parser:   p,
		chunker:  ch,
		embedder: embedder,
		vectors:  vectors,
		lex:      lex,
		cfg:      cfg,
		logger:   logger_i.NewLogger("Ingest"),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Admit is the back-pressure gate: callers are refused up front when the
// queue is full or the object store cannot take writes, instead of being
// accepted and failed later.
func (o *Orchestrator) Admit() error {
	if o.jobs.QueueSaturated() {
		return faults.New(faults.KindTransient, "ingest queue is saturated, retry later")
	}
	if o.objects.Degraded() {
		return faults.New(faults.KindTransient, "object store is unavailable, uploads refused")
	}
	return nil
}

// Accept validates the request, registers a pending job and enqueues it.
// The reply carries only the job ID; everything else happens behind it.
func (o *Orchestrator) Accept(ctx context.Context, req ArchiveUploadRequest) (string, error) {
	if err := o.Admit(); err != nil {
		return "", err
	}
	if err := req.Manifest.Validate(); err != nil {
		return "", faults.Wrap(faults.KindInput, "invalid manifest", err)
	}
	if req.ArchivePath == "" {
		return "", faults.New(faults.KindInput, "archive_path is required")
	}
	if req.ArchiveHash == "" {
		return "", faults.New(faults.KindInput, "archive_hash is required")
	}
	if req.ArchiveSize > config.MaxArchiveUploadBytes {
		return "", faults.New(faults.KindInput, "archive exceeds the upload size limit")
	}

	traceID, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	ingestJob := jobModel.IngestJob{
		JobID:       jobModel.NewJobID(),
		TraceID:     traceID,
		Manifest:    req.Manifest,
		ArchivePath: objectKey(req.ArchivePath, o.cfg.ArchiveBucket),
		ArchiveHash: req.ArchiveHash,
		State:       jobModel.JobStatePending,
		CurrentStep: jobModel.StepAccepted,
		CreatedAt:   time.Now(),
	}

	if err := o.jobs.JobStore.SaveJob(ctx, ingestJob); err != nil {
		return "", faults.Transient("could not register job", err)
	}

	select {
	case o.jobs.JobChannel <- ingestJob:
		metrics.IncrementJobsInQueue()
	default:
		o.jobs.JobStore.DeleteJob(ctx, ingestJob.JobID)
		return "", faults.New(faults.KindTransient, "ingest queue is saturated, retry later")
	}

	// nudge the dispatcher; dropping the nudge is fine, the pool catches up
	select {
	case o.jobs.DispatcherChannel <- true:
	default:
	}

	return ingestJob.JobID, nil
}

// Cancel stops a running job at its next batch boundary. A job still
// waiting in the queue is failed in place and dropped at pickup. It
// reports false when the job is unknown or already terminal.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) bool {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	if cancel, ok := o.cancels[jobID]; ok {
		cancel()
		return true
	}

	// not running yet: mark the stored record so Execute drops it
	ingestJob, ok := o.jobs.JobStore.GetJob(ctx, jobID)
	if !ok || ingestJob.Terminal() {
		return false
	}
	o.fail(ctx, &ingestJob, jobModel.CauseCancelled, "job cancelled before start", false)
	return true
}

func (o *Orchestrator) registerCancel(jobID string, cancel context.CancelFunc) {
	o.cancelMu.Lock()
	o.cancels[jobID] = cancel
	o.cancelMu.Unlock()
}

func (o *Orchestrator) unregisterCancel(jobID string) {
	o.cancelMu.Lock()
	delete(o.cancels, jobID)
	o.cancelMu.Unlock()
}

// objectKey strips the s3://bucket/ prefix when the caller passed a full
// URI instead of a bare key.
func objectKey(path, bucket string) string {
	prefix := "s3://" + bucket + "/"
	if strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, prefix)
	}
	return path
}
