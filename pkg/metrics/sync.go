package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncWorkerMetrics records outcomes of crowdfunding sync jobs and worker cycles.
type SyncWorkerMetrics struct {
	cycleDuration *prometheus.HistogramVec
	jobSuccess    *prometheus.CounterVec
	jobRetry      *prometheus.CounterVec
	jobFailure    *prometheus.CounterVec
}

// NewSyncWorkerMetrics registers the sync worker metrics on the provided registerer.
func NewSyncWorkerMetrics(reg prometheus.Registerer) *SyncWorkerMetrics {
	if reg == nil {
		return &SyncWorkerMetrics{}
	}
	cycleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_cycle_duration_seconds",
		Help:    "Duration of sync worker cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	jobSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_job_success",
		Help: "Sync jobs completed successfully.",
	}, []string{"type"})
	jobRetry := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_job_retry",
		Help: "Sync job attempts that failed and were left for retry.",
	}, []string{"type"})
	jobFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_job_failure",
		Help: "Sync jobs that exhausted their attempts.",
	}, []string{"type"})
	reg.MustRegister(cycleDuration, jobSuccess, jobRetry, jobFailure)
	return &SyncWorkerMetrics{
		cycleDuration: cycleDuration,
		jobSuccess:    jobSuccess,
		jobRetry:      jobRetry,
		jobFailure:    jobFailure,
	}
}

// ObserveCycle records the duration of one worker drain cycle.
func (m *SyncWorkerMetrics) ObserveCycle(worker string, duration time.Duration) {
	if m == nil || m.cycleDuration == nil {
		return
	}
	m.cycleDuration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the given job type.
func (m *SyncWorkerMetrics) IncSuccess(jobType string) {
	if m == nil || m.jobSuccess == nil {
		return
	}
	m.jobSuccess.WithLabelValues(normalizeLabel(jobType)).Inc()
}

// IncRetry increments the retry counter for the given job type.
func (m *SyncWorkerMetrics) IncRetry(jobType string) {
	if m == nil || m.jobRetry == nil {
		return
	}
	m.jobRetry.WithLabelValues(normalizeLabel(jobType)).Inc()
}

// IncFailure increments the terminal failure counter for the given job type.
func (m *SyncWorkerMetrics) IncFailure(jobType string) {
	if m == nil || m.jobFailure == nil {
		return
	}
	m.jobFailure.WithLabelValues(normalizeLabel(jobType)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
