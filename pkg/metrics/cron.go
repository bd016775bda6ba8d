package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobOutcomeSucceeded = "succeeded"
	JobOutcomeFailed    = "failed"
)

// CronJobMetrics tracks maintenance job runs and cycles lost to another
// worker holding the lock.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Maintenance job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Maintenance job run time.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60},
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cron_cycles_skipped_total",
			Help: "Cycles skipped because the cron lock was held elsewhere.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.skipped)
	return m
}

// ObserveRun records one job run; a non-nil err counts as failed.
func (m *CronJobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := JobOutcomeSucceeded
	if err != nil {
		outcome = JobOutcomeFailed
	}
	m.runs.WithLabelValues(job, outcome).Inc()
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *CronJobMetrics) SkipCycle() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

func normalizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
