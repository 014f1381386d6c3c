package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/metrics"
	"github.com/plantdex/plantdex/internal/parser"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
)

type fileResult struct {
	path string
	err  error
}

// Execute runs one accepted job to a terminal state. Only this goroutine
// writes the job record; per-file workers report over a channel.
func (o *Orchestrator) Execute(ingestJob jobModel.IngestJob) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(ingestJob.State), time.Since(start))
	}()

	// saves go through baseCtx so the terminal state still lands after a
	// cancellation
	baseCtx := context.WithValue(context.Background(), config.TRACE_ID_KEY, ingestJob.TraceID)
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()
	o.registerCancel(ingestJob.JobID, cancel)
	defer o.unregisterCancel(ingestJob.JobID)

	log := o.logger.With("traceId", ingestJob.TraceID, "jobId", ingestJob.JobID)

	// the record is re-read after cancel registration, so a cancellation
	// that landed while the job sat in the queue is seen here
	if stored, ok := o.jobs.JobStore.GetJob(baseCtx, ingestJob.JobID); ok && stored.Terminal() {
		log.Info("Skipping job cancelled in queue")
		return
	}
	log.Info("Starting ingest job")

	ingestJob.State = jobModel.JobStateProcessing
	ingestJob.StartedAt = time.Now()
	o.step(baseCtx, &ingestJob, jobModel.StepFetching)

	archive, err := o.fetchArchive(ctx, &ingestJob)
	if err != nil {
		if ctx.Err() != nil {
			o.fail(baseCtx, &ingestJob, jobModel.CauseCancelled, "job cancelled by caller", false)
			return
		}
		o.fail(baseCtx, &ingestJob, jobModel.CauseFetch, err.Error(), faults.IsRetryable(err))
		return
	}

	if !hashMatches(archive, ingestJob.ArchiveHash) {
		o.fail(baseCtx, &ingestJob, jobModel.CauseHashMismatch, "archive bytes do not match the declared hash", false)
		return
	}

	o.step(baseCtx, &ingestJob, jobModel.StepUnpacking)
	scratch, files, err := o.unpack(ingestJob.JobID, archive)
	if scratch != "" {
		defer os.RemoveAll(scratch)
	}
	if err != nil {
		o.fail(baseCtx, &ingestJob, jobModel.CauseUnpack, err.Error(), false)
		return
	}

	ingestJob.Files = jobModel.FileCounters{Total: len(files)}
	o.step(baseCtx, &ingestJob, jobModel.StepParsing)

	if err := o.ensureCollections(ctx); err != nil {
		o.fail(baseCtx, &ingestJob, jobModel.CauseFetch, err.Error(), faults.IsRetryable(err))
		return
	}

	results := make(chan fileResult)
	go o.fanOut(ctx, ingestJob, files, results)

	for res := range results {
		if res.err != nil {
			ingestJob.Files.Failed++
			metrics.CountFile("failed")
			log.Warn("File failed", "file", filepath.Base(res.path), "error", res.err)
		} else {
			ingestJob.Files.Processed++
			metrics.CountFile("processed")
		}
		if err := o.jobs.JobStore.SaveJob(baseCtx, ingestJob); err != nil {
			log.Error("Failed to persist job progress", "error", err)
		}
	}

	if ctx.Err() != nil {
		o.fail(baseCtx, &ingestJob, jobModel.CauseCancelled, "job cancelled by caller", false)
		return
	}

	ingestJob.State = jobModel.JobStateCompleted
	if ingestJob.Files.Failed > 0 {
		ingestJob.State = jobModel.JobStatePartial
	}
	ingestJob.CurrentStep = jobModel.StepDone
	ingestJob.CompletedAt = time.Now()
	if err := o.jobs.JobStore.SaveJob(baseCtx, ingestJob); err != nil {
		log.Error("Failed to persist terminal job state", "error", err)
	}
	log.Info("Ingest job finished", "state", ingestJob.State,
		"processed", ingestJob.Files.Processed, "failed", ingestJob.Files.Failed)
}

// fanOut runs the per-file pipeline with bounded parallelism and closes
// results when every worker has reported.
func (o *Orchestrator) fanOut(ctx context.Context, ingestJob jobModel.IngestJob, files []string, results chan<- fileResult) {
	defer close(results)

	sem := make(chan struct{}, o.cfg.IngestWorkers)
	var wg sync.WaitGroup
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- fileResult{path: path, err: o.processFile(ctx, ingestJob, path)}
		}(path)
	}
	wg.Wait()
}

// processFile is the whole per-file pipeline: parse, chunk, embed in
// bounded batches and upsert in production order. A soft timeout bounds
// the file; its retry budget is not shared with other files.
func (o *Orchestrator) processFile(ctx context.Context, ingestJob jobModel.IngestJob, path string) error {
	fctx, cancel := context.WithTimeout(ctx, o.cfg.IngestFileTimeout)
	defer cancel()

	mime := parser.MimeForPath(path)
	if mime == "" {
		return faults.New(faults.KindPerFile, "unsupported file type: "+filepath.Ext(path))
	}

	doc, err := o.parser.Parse(fctx, path, mime)
	if err != nil {
		return err
	}
	// search hits presign against the archive object, not the scratch copy
	doc.SourcePath = ingestJob.ArchivePath

	chunks := o.chunker.Chunk(doc, &ingestJob.Manifest)
	chunks = dropEmpty(chunks)
	if len(chunks) == 0 {
		return nil
	}

	budget := newRetryBudget(o.cfg.IngestRetryMax * 4)
	for _, kind := range []docModel.ChunkKind{docModel.KindText, docModel.KindTable, docModel.KindDrawing, docModel.KindIFC} {
		kindChunks := chunksOfKind(chunks, kind)
		if len(kindChunks) == 0 {
			continue
		}
		collection := docModel.CollectionFor(kind, o.embedder.ModelTag())

		for start := 0; start < len(kindChunks); start += config.EmbedBatchSize {
			// cancellation is honored at batch boundaries only
			if fctx.Err() != nil {
				return faults.Wrap(faults.KindPerFile, "file aborted", fctx.Err())
			}
			end := start + config.EmbedBatchSize
			if end > len(kindChunks) {
				end = len(kindChunks)
			}
			if err := o.embedAndUpsert(fctx, collection, kindChunks[start:end], budget); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) embedAndUpsert(ctx context.Context, collection string, batch []docModel.Chunk, budget *retryBudget) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	var vectors [][]float32
	err := o.retry(ctx, budget, func() error {
		var embedErr error
		vectors, embedErr = o.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return faults.Integrity("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}

	points := make([]vectorStore.Point, len(batch))
	entries := make([]lexical.Entry, len(batch))
	for i, c := range batch {
		points[i] = vectorStore.Point{
			ID:      c.ChunkID,
			Vector:  vectors[i],
			Content: c.Content,
			Payload: c.Payload,
		}
		entries[i] = lexical.Entry{
			ChunkID: c.ChunkID,
			DocNo:   c.Payload.DocNo,
			Content: c.Content,
			Payload: c.Payload,
		}
	}

	err = o.retry(ctx, budget, func() error {
		return o.vectors.Upsert(ctx, collection, points)
	})
	if err != nil {
		return err
	}
	metrics.CountChunks(collection, len(points))

	err = o.retry(ctx, budget, func() error {
		return o.lex.Upsert(ctx, collection, entries)
	})
	if err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) fetchArchive(ctx context.Context, ingestJob *jobModel.IngestJob) ([]byte, error) {
	var archive []byte
	budget := newRetryBudget(o.cfg.IngestRetryMax)
	err := o.retry(ctx, budget, func() error {
		var getErr error
		archive, getErr = o.objects.Get(ctx, ingestJob.ArchivePath)
		return getErr
	})
	return archive, err
}

// unpack extracts the zip into a scratch directory keyed by job ID. Entry
// names are confined to the scratch root.
func (o *Orchestrator) unpack(jobID string, archive []byte) (string, []string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", nil, faults.Wrap(faults.KindInput, "archive is not a readable zip", err)
	}

	scratch := filepath.Join(os.TempDir(), config.ScratchDirName, jobID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", nil, faults.Transient("could not create scratch dir", err)
	}

	var files []string
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		// keep the entry's directory structure: flattening on the base name
		// would silently drop same-named files from different folders
		name := filepath.Clean(filepath.FromSlash(entry.Name))
		if strings.HasPrefix(filepath.Base(name), ".") {
			continue
		}
		target := filepath.Join(scratch, name)
		if !strings.HasPrefix(target, scratch+string(os.PathSeparator)) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return scratch, nil, faults.Transient("could not create scratch dir", err)
		}
		if err := extractEntry(entry, target); err != nil {
			return scratch, nil, faults.Wrap(faults.KindInput, "could not extract "+name, err)
		}
		files = append(files, target)
	}
	if len(files) == 0 {
		return scratch, nil, faults.New(faults.KindInput, "archive contains no files")
	}
	return scratch, files, nil
}

func extractEntry(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func (o *Orchestrator) ensureCollections(ctx context.Context) error {
	dim := uint64(o.embedder.Dim())
	for _, kind := range []docModel.ChunkKind{docModel.KindText, docModel.KindTable, docModel.KindDrawing, docModel.KindIFC} {
		if err := o.vectors.EnsureCollection(ctx, docModel.CollectionFor(kind, o.embedder.ModelTag()), dim); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) step(ctx context.Context, ingestJob *jobModel.IngestJob, step jobModel.InternalStatus) {
	ingestJob.CurrentStep = step
	if err := o.jobs.JobStore.SaveJob(ctx, *ingestJob); err != nil {
		o.logger.Error("Failed to persist job step", "jobId", ingestJob.JobID, "step", step, "error", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, ingestJob *jobModel.IngestJob, cause, message string, retry bool) {
	ingestJob.State = jobModel.JobStateFailed
	ingestJob.CurrentStep = jobModel.StepError
	ingestJob.CompletedAt = time.Now()
	ingestJob.Error = &jobModel.JobError{Cause: cause, Message: message, Retry: retry}
	if err := o.jobs.JobStore.SaveJob(ctx, *ingestJob); err != nil {
		o.logger.Error("Failed to persist failed job", "jobId", ingestJob.JobID, "error", err)
	}
	o.logger.Warn("Ingest job failed", "jobId", ingestJob.JobID, "cause", cause, "message", message)
}

// retry reattempts transient failures with exponential backoff and jitter.
// Integrity and input faults surface immediately; the per-file budget caps
// total retries so one bad file cannot starve the job.
func (o *Orchestrator) retry(ctx context.Context, budget *retryBudget, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	wrapped := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(o.cfg.IngestRetryMax)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !faults.IsRetryable(err) || !budget.allow() {
			return backoff.Permanent(err)
		}
		return err
	}, wrapped)
}

type retryBudget struct {
	mu        sync.Mutex
	remaining int
}

func newRetryBudget(n int) *retryBudget {
	return &retryBudget{remaining: n}
}

func (b *retryBudget) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func hashMatches(data []byte, declared string) bool {
	sum := sha256.Sum256(data)
	return strings.EqualFold(hex.EncodeToString(sum[:]), declared)
}

func dropEmpty(chunks []docModel.Chunk) []docModel.Chunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			kept = append(kept, c)
		}
	}
	return kept
}

func chunksOfKind(chunks []docModel.Chunk, kind docModel.ChunkKind) []docModel.Chunk {
	var out []docModel.Chunk
	for _, c := range chunks {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
