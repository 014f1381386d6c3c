package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/plantdex/plantdex/internal/chunker"
	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/data/store"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/domain/jobModel"
	"github.com/plantdex/plantdex/internal/job"
	"github.com/plantdex/plantdex/internal/objectStore"
	"github.com/plantdex/plantdex/internal/parser"
	"github.com/plantdex/plantdex/internal/parser/ocr"
	"github.com/plantdex/plantdex/internal/search/lexical"
	"github.com/plantdex/plantdex/internal/vectorStore"
)

type fakeObjectStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	degraded bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{blobs: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = data
	return path, nil
}

func (f *fakeObjectStore) PutStream(ctx context.Context, path string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return f.Put(ctx, path, data)
}

func (f *fakeObjectStore) Get(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[path]
	if !ok {
		return nil, faults.New(faults.KindInput, "no such object: "+path)
	}
	return data, nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[path]
	return ok, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]objectStore.Entry, error) {
	return nil, nil
}

func (f *fakeObjectStore) Presign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return "https://test/" + path, nil
}

func (f *fakeObjectStore) Degraded() bool { return f.degraded }

type recordingVectorStore struct {
	mu          sync.Mutex
	points      map[string][]vectorStore.Point
	deletedDocs []string
	failUpserts int
}

func newRecordingVectorStore() *recordingVectorStore {
	return &recordingVectorStore{points: map[string][]vectorStore.Point{}}
}

func (r *recordingVectorStore) EnsureCollection(ctx context.Context, name string, dim uint64) error {
	return nil
}

func (r *recordingVectorStore) Upsert(ctx context.Context, collection string, points []vectorStore.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpserts > 0 {
		r.failUpserts--
		return faults.New(faults.KindTransient, "store briefly down")
	}
	r.points[collection] = append(r.points[collection], points...)
	return nil
}

func (r *recordingVectorStore) Search(ctx context.Context, collection string, vector []float32, k int, filter vectorStore.Filter) ([]vectorStore.Hit, error) {
	return nil, nil
}

func (r *recordingVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	return nil
}

func (r *recordingVectorStore) DeleteByDoc(ctx context.Context, collection string, docNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedDocs = append(r.deletedDocs, collection+"/"+docNo)
	return nil
}

func (r *recordingVectorStore) ListCollections(ctx context.Context) ([]vectorStore.CollectionInfo, error) {
	return nil, nil
}

func (r *recordingVectorStore) Count(ctx context.Context, collection string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.points[collection])), nil
}

func (r *recordingVectorStore) totalPoints() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, pts := range r.points {
		n += len(pts)
	}
	return n
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (fakeEmbedder) ModelID() string  { return "test-embedder" }
func (fakeEmbedder) ModelTag() string { return "test" }
func (fakeEmbedder) Dim() int32       { return 3 }

type testHarness struct {
	orch    *Orchestrator
	objects *fakeObjectStore
	vectors *recordingVectorStore
	lex     *lexical.Index
	jobs    *job.Service
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	lex, err := lexical.Open(filepath.Join(t.TempDir(), "lex.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lex.Close() })

	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.IngestJob, 4),
		DispatcherChannel: make(chan bool, 4),
		JobStore:          store.InitInMemoryJobStore(),
		DocumentStore:     store.InitInMemoryDocumentStore(),
	})

	cfg := config.Settings{
		ArchiveBucket:     config.DefaultArchiveBucket,
		IngestWorkers:     2,
		IngestRetryMax:    2,
		IngestFileTimeout: time.Minute,
	}

	objects := newFakeObjectStore()
	vectors := newRecordingVectorStore()
	orch := NewOrchestrator(jobs, objects,
		parser.New(ocr.NewRunner("")), chunker.New(nil),
		fakeEmbedder{}, vectors, lex, cfg)

	return &testHarness{orch: orch, objects: objects, vectors: vectors, lex: lex, jobs: jobs}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func testManifest() docModel.Manifest {
	return docModel.Manifest{
		ProjectID:         "proj-1",
		ObjectID:          "obj-1",
		Phase:             docModel.PhaseRD,
		Confidentiality:   docModel.ConfInternal,
		DefaultDiscipline: docModel.DiscProcess,
	}
}

func (h *testHarness) acceptAndRun(t *testing.T, archive []byte, declaredHash string) jobModel.IngestJob {
	t.Helper()
	ctx := context.Background()

	if _, err := h.objects.Put(ctx, "archives/a1.zip", archive); err != nil {
		t.Fatal(err)
	}
	jobID, err := h.orch.Accept(ctx, ArchiveUploadRequest{
		Manifest:    testManifest(),
		ArchivePath: "archives/a1.zip",
		ArchiveHash: declaredHash,
	})
	if err != nil {
		t.Fatal(err)
	}

	accepted := <-h.jobs.JobChannel
	h.orch.Execute(accepted)

	final, ok := h.jobs.JobStore.GetJob(ctx, jobID)
	if !ok {
		t.Fatal("job vanished from the store")
	}
	return final
}

func TestExecute_CompletesAndIndexesBothLanes(t *testing.T) {
	h := newTestHarness(t)
	archive := buildZip(t, map[string]string{
		"PLX-100_revA.txt": "Центробежный насос Н-101 для технологической установки.",
		"PLX-200_revB.txt": "Теплообменник Т-201, тепловая нагрузка 120 кВт.",
	})

	final := h.acceptAndRun(t, archive, hashOf(archive))

	if final.State != jobModel.JobStateCompleted {
		t.Fatalf("state = %s, error = %+v", final.State, final.Error)
	}
	if final.Files.Total != 2 || final.Files.Processed != 2 || final.Files.Failed != 0 {
		t.Errorf("files = %+v", final.Files)
	}
	if final.CurrentStep != jobModel.StepDone {
		t.Errorf("step = %s", final.CurrentStep)
	}

	if h.vectors.totalPoints() == 0 {
		t.Error("no points reached the vector store")
	}
	textCollection := docModel.CollectionFor(docModel.KindText, "test")
	n, err := h.lex.Count(context.Background(), textCollection)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("no entries reached the lexical index")
	}
}

func TestExecute_PartialOnBadFile(t *testing.T) {
	h := newTestHarness(t)
	archive := buildZip(t, map[string]string{
		"good_revA.txt": "Документ с техническим заданием на насос.",
		"photo.png":     "\x89PNG not parseable",
	})

	final := h.acceptAndRun(t, archive, hashOf(archive))

	if final.State != jobModel.JobStatePartial {
		t.Fatalf("state = %s", final.State)
	}
	if final.Files.Processed != 1 || final.Files.Failed != 1 {
		t.Errorf("files = %+v", final.Files)
	}
	if final.Files.Processed+final.Files.Failed != final.Files.Total {
		t.Errorf("counters do not add up: %+v", final.Files)
	}
}

func TestExecute_HashMismatchFailsWithoutRetry(t *testing.T) {
	h := newTestHarness(t)
	archive := buildZip(t, map[string]string{"a_revA.txt": "содержимое"})

	final := h.acceptAndRun(t, archive, "deadbeef")

	if final.State != jobModel.JobStateFailed {
		t.Fatalf("state = %s", final.State)
	}
	if final.Error == nil || final.Error.Cause != jobModel.CauseHashMismatch {
		t.Fatalf("error = %+v", final.Error)
	}
	if final.Error.Retry {
		t.Error("hash mismatch must not be retryable")
	}
	if h.vectors.totalPoints() != 0 {
		t.Error("no point may be written for a rejected archive")
	}
}

func TestExecute_NotAZipFails(t *testing.T) {
	h := newTestHarness(t)
	garbage := []byte("this is not a zip archive")

	final := h.acceptAndRun(t, garbage, hashOf(garbage))

	if final.State != jobModel.JobStateFailed {
		t.Fatalf("state = %s", final.State)
	}
	if final.Error == nil || final.Error.Cause != jobModel.CauseUnpack {
		t.Fatalf("error = %+v", final.Error)
	}
}

func TestExecute_TransientUpsertIsRetried(t *testing.T) {
	h := newTestHarness(t)
	h.vectors.failUpserts = 1
	archive := buildZip(t, map[string]string{
		"PLX-100_revA.txt": "Насос центробежный для перекачки аммиака.",
	})

	final := h.acceptAndRun(t, archive, hashOf(archive))

	if final.State != jobModel.JobStateCompleted {
		t.Fatalf("state = %s, error = %+v", final.State, final.Error)
	}
	if h.vectors.totalPoints() == 0 {
		t.Error("retried upsert never landed")
	}
}

func TestAccept_Validation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.orch.Accept(ctx, ArchiveUploadRequest{
		Manifest: testManifest(), ArchiveHash: "abc",
	})
	if faults.KindOf(err) != faults.KindInput {
		t.Errorf("missing path: kind = %v", faults.KindOf(err))
	}

	_, err = h.orch.Accept(ctx, ArchiveUploadRequest{
		Manifest: testManifest(), ArchivePath: "archives/a.zip",
	})
	if faults.KindOf(err) != faults.KindInput {
		t.Errorf("missing hash: kind = %v", faults.KindOf(err))
	}

	_, err = h.orch.Accept(ctx, ArchiveUploadRequest{
		ArchivePath: "archives/a.zip", ArchiveHash: "abc",
	})
	if faults.KindOf(err) != faults.KindInput {
		t.Errorf("invalid manifest: kind = %v", faults.KindOf(err))
	}
}

func TestAccept_RefusesWhenSaturated(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for len(h.jobs.JobChannel) < cap(h.jobs.JobChannel) {
		h.jobs.JobChannel <- jobModel.IngestJob{}
	}

	_, err := h.orch.Accept(ctx, ArchiveUploadRequest{
		Manifest: testManifest(), ArchivePath: "archives/a.zip", ArchiveHash: "abc",
	})
	if faults.KindOf(err) != faults.KindTransient {
		t.Errorf("kind = %v, want transient back-pressure", faults.KindOf(err))
	}
}

func TestAccept_RefusesDegradedObjectStore(t *testing.T) {
	h := newTestHarness(t)
	h.objects.degraded = true

	_, err := h.orch.Accept(context.Background(), ArchiveUploadRequest{
		Manifest: testManifest(), ArchivePath: "archives/a.zip", ArchiveHash: "abc",
	})
	if faults.KindOf(err) != faults.KindTransient {
		t.Errorf("kind = %v", faults.KindOf(err))
	}
}

func TestAccept_RefusesOversizedArchive(t *testing.T) {
	h := newTestHarness(t)
	_, err := h.orch.Accept(context.Background(), ArchiveUploadRequest{
		Manifest:    testManifest(),
		ArchivePath: "archives/huge.zip",
		ArchiveSize: config.MaxArchiveUploadBytes + 1,
		ArchiveHash: "deadbeef",
	})
	if faults.KindOf(err) != faults.KindInput {
		t.Fatalf("fault kind = %v, want input", faults.KindOf(err))
	}
}

func TestCancel_QueuedJobNeverRuns(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	archive := buildZip(t, map[string]string{
		"doc_revA.txt": "Документ с техническим заданием на насос.",
	})
	if _, err := h.objects.Put(ctx, "archives/a1.zip", archive); err != nil {
		t.Fatal(err)
	}

	jobID, err := h.orch.Accept(ctx, ArchiveUploadRequest{
		Manifest:    testManifest(),
		ArchivePath: "archives/a1.zip",
		ArchiveHash: hashOf(archive),
	})
	if err != nil {
		t.Fatal(err)
	}

	// cancel lands while the job is still queued, before Execute starts
	if !h.orch.Cancel(ctx, jobID) {
		t.Fatal("cancelling a queued job reported false")
	}

	cancelled, ok := h.jobs.JobStore.GetJob(ctx, jobID)
	if !ok {
		t.Fatal("job vanished from the store")
	}
	if cancelled.State != jobModel.JobStateFailed || cancelled.Error == nil ||
		cancelled.Error.Cause != jobModel.CauseCancelled {
		t.Fatalf("job = %+v, want failed with a cancelled cause", cancelled)
	}

	// the worker picking the job up must drop it untouched
	accepted := <-h.jobs.JobChannel
	h.orch.Execute(accepted)

	final, _ := h.jobs.JobStore.GetJob(ctx, jobID)
	if final.State != jobModel.JobStateFailed || final.Files.Total != 0 {
		t.Fatalf("dropped job was still processed: %+v", final)
	}
	if h.vectors.totalPoints() != 0 {
		t.Error("cancelled job reached the vector store")
	}
}

func TestCancel_UnknownOrFinishedJobIsFalse(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	if h.orch.Cancel(ctx, "no-such-job") {
		t.Error("unknown job cancelled")
	}

	archive := buildZip(t, map[string]string{
		"doc_revA.txt": "Документ с техническим заданием на насос.",
	})
	final := h.acceptAndRun(t, archive, hashOf(archive))
	if h.orch.Cancel(ctx, final.JobID) {
		t.Error("terminal job cancelled")
	}
}

func TestUnpack_KeepsSameNamedFilesApart(t *testing.T) {
	h := newTestHarness(t)
	archive := buildZip(t, map[string]string{
		"area_a/spec_revA.txt": "Насос Н-101 для установки A.",
		"area_b/spec_revA.txt": "Насос Н-201 для установки B.",
	})

	final := h.acceptAndRun(t, archive, hashOf(archive))

	if final.State != jobModel.JobStateCompleted {
		t.Fatalf("state = %s, error = %+v", final.State, final.Error)
	}
	if final.Files.Total != 2 || final.Files.Processed != 2 {
		t.Fatalf("files = %+v, want both same-named entries processed", final.Files)
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey("s3://plantdex-archives/a/b.zip", "plantdex-archives"); got != "a/b.zip" {
		t.Errorf("objectKey = %q", got)
	}
	if got := objectKey("a/b.zip", "plantdex-archives"); got != "a/b.zip" {
		t.Errorf("bare key changed: %q", got)
	}
}

func TestWithdraw_RemovesBothLanes(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	archive := buildZip(t, map[string]string{
		"PLX-100_revA.txt": "Документ на центробежный насос.",
	})
	final := h.acceptAndRun(t, archive, hashOf(archive))
	if final.State != jobModel.JobStateCompleted {
		t.Fatalf("state = %s", final.State)
	}

	if err := h.orch.Withdraw(ctx, "PLX-100"); err != nil {
		t.Fatal(err)
	}

	textCollection := docModel.CollectionFor(docModel.KindText, "test")
	n, err := h.lex.Count(ctx, textCollection)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("lexical entries left after withdraw: %d", n)
	}
	if len(h.vectors.deletedDocs) == 0 {
		t.Error("vector store never saw the withdraw")
	}

	if err := h.orch.Withdraw(ctx, ""); faults.KindOf(err) != faults.KindInput {
		t.Errorf("empty doc_no: kind = %v", faults.KindOf(err))
	}
}

func TestReindex(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	collection := docModel.CollectionFor(docModel.KindText, "test")

	entries := []lexical.Entry{
		{ChunkID: "c1", DocNo: "D1", Content: "насос", Payload: docModel.Payload{DocNo: "D1"}},
		{ChunkID: "c2", DocNo: "D1", Content: "теплообменник", Payload: docModel.Payload{DocNo: "D1"}},
	}
	if err := h.lex.Upsert(ctx, collection, entries); err != nil {
		t.Fatal(err)
	}

	n, err := h.orch.Reindex(ctx, collection)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("reindexed = %d, want 2", n)
	}
	if h.vectors.totalPoints() != 2 {
		t.Errorf("points = %d", h.vectors.totalPoints())
	}

	if _, err := h.orch.Reindex(ctx, "bogus"); faults.KindOf(err) != faults.KindInput {
		t.Errorf("unknown collection: kind = %v", faults.KindOf(err))
	}

	// empty but well-formed collection reindexes nothing
	n, err = h.orch.Reindex(ctx, docModel.CollectionFor(docModel.KindIFC, "test"))
	if err != nil || n != 0 {
		t.Errorf("empty collection: n=%d err=%v", n, err)
	}
}
