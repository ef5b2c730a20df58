package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records background maintenance jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	evicted  prometheus.Counter
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_job_runs_total",
		Help: "Maintenance job executions by outcome.",
	}, []string{"job", "result"})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_sessions_evicted_total",
		Help: "Idle sessions flushed and dropped from memory.",
	})
	reg.MustRegister(duration, runs, evicted)
	return &JobMetrics{duration: duration, runs: runs, evicted: evicted}
}

// ObserveRun records one job execution.
func (j *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if j == nil || j.runs == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	j.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func (j *JobMetrics) AddEvicted(n int) {
	if j == nil || j.evicted == nil || n <= 0 {
		return
	}
	j.evicted.Add(float64(n))
}
