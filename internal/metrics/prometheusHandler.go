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
	Name: "count_jobs_in_queue",
	Help: "Number of change events waiting in worker queues",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of workers currently processing an event",
})

var changeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "change_events_total",
	Help: "Change events consumed labelled by op and outcome",
}, []string{"op", "outcome"})

var ingestionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_runs_total",
	Help: "Finished ingestion runs labelled by terminal status",
}, []string{"status"})

var acquireAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "acquire_existence_checks_total",
	Help: "Object storage existence checks issued by the acquire stage",
})

var reportFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "status_report_failures_total",
	Help: "Status callbacks that failed and were flagged for reconciliation",
})

var chunksUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chunks_upserted_total",
	Help: "Chunks written to the vector index",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses such as MCP event streams working behind the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CountChangeEvent(op, outcome string) {
	changeEventsTotal.WithLabelValues(op, outcome).Inc()
}

func CountIngestionRun(status string) {
	ingestionRunsTotal.WithLabelValues(status).Inc()
}

func CountAcquireAttempt() {
	acquireAttemptsTotal.Inc()
}

func CountReportFailure() {
	reportFailuresTotal.Inc()
}

func CountChunksUpserted(n int) {
	chunksUpsertedTotal.Add(float64(n))
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in one ingestion run or search.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 300},
}, []string{"status"})

var stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingest_stage_latency_seconds",
	Help:    "Latency of each ingestion stage.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"stage"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureStageMetrics(stage string, timeElapsed time.Duration) {
	stageLatency.WithLabelValues(stage).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
