// internal/common/metrics/metrics.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hr-query-engine/internal/models"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_queries_total",
			Help: "Total number of processed queries by intent and status",
		},
		[]string{"query_type", "status"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hr_query_duration_seconds",
			Help:    "End-to-end query latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"data_source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"},
	)

	EngineFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_engine_fallbacks_total",
			Help: "Queries answered by the fallback engine, by primary failure",
		},
		[]string{"reason"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "hr_external_call_duration_seconds",
			Help: "Latency of aggregation store, search and model calls",
		},
		[]string{"service", "outcome"},
	)

	QueriesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hr_queries_active",
			Help: "Number of queries in flight",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// QueryObserver mirrors query outcomes into a second metrics pipeline.
type QueryObserver interface {
	RecordQueryProcessed(ctx context.Context, queryType, status string, d time.Duration)
}

// Recorder feeds engine and router measurements into the prometheus vectors.
type Recorder struct {
	observers []QueryObserver
}

func NewRecorder(observers ...QueryObserver) *Recorder {
	return &Recorder{observers: observers}
}

func (r *Recorder) QueryStarted() {
	QueriesActive.Inc()
}

func (r *Recorder) QueryFinished(qt models.QueryType, status models.Status, ds models.DataSource, d time.Duration) {
	QueriesActive.Dec()
	QueriesTotal.WithLabelValues(string(qt), string(status)).Inc()
	QueryDuration.WithLabelValues(string(ds)).Observe(d.Seconds())
	for _, o := range r.observers {
		o.RecordQueryProcessed(context.Background(), string(qt), string(status), d)
	}
}

func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) Fallback(reason string) {
	EngineFallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveExternalCall(service, outcome string, d time.Duration) {
	ExternalCallDuration.WithLabelValues(service, outcome).Observe(d.Seconds())
}
