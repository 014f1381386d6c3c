package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ingest_jobs_in_queue",
	Help: "Number of ingest jobs waiting for a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active ingest workers",
})

var filesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_files_total",
	Help: "Files handled by the ingest pipeline, labelled by outcome",
}, []string{"outcome"})

var chunksUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chunks_upserted_total",
	Help: "Chunks written to the vector store, labelled by collection",
}, []string{"collection"})

var checkVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outgoing_verdicts_total",
	Help: "Outgoing-control verdicts, labelled by decision",
}, []string{"decision"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) CaptureWriteHeaderMetrics(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() { countJobsInQueue.Inc() }

func DecrementJobsInQueue() { countJobsInQueue.Dec() }

func IncrementActiveWorkerCount() { activeWorkerCount.Inc() }

func DecrementActiveWorkerCount() { activeWorkerCount.Dec() }

func CountFile(outcome string) { filesProcessed.WithLabelValues(outcome).Inc() }

func CountChunks(collection string, n int) {
	chunksUpserted.WithLabelValues(collection).Add(float64(n))
}

func CountVerdict(decision string) { checkVerdicts.WithLabelValues(decision).Inc() }

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingest_job_duration_seconds",
	Help:    "Total time spent per ingest job.",
	Buckets: []float64{1, 5, 15, 60, 120, 300, 900},
}, []string{"state"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	jobDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
