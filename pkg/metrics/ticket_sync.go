package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ticket sync pass outcomes.
const (
	SyncResultApplied = "applied"
	SyncResultNoop    = "noop"
	SyncResultFailed  = "failed"
)

// TicketSyncMetrics records reconciliation passes of ticket sessions.
type TicketSyncMetrics struct {
	passes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTicketSyncMetrics registers the ticket sync metrics on the provided registerer.
func NewTicketSyncMetrics(reg prometheus.Registerer) *TicketSyncMetrics {
	if reg == nil {
		return &TicketSyncMetrics{}
	}
	passes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_sync_passes_total",
		Help: "Ticket fetch-and-reconcile passes by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticket_sync_pass_duration_seconds",
		Help:    "Duration of ticket fetch-and-reconcile passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(passes, duration)
	return &TicketSyncMetrics{
		passes:   passes,
		duration: duration,
	}
}

// ObservePass counts one pass and records how long it took.
func (m *TicketSyncMetrics) ObservePass(result string, elapsed time.Duration) {
	if m == nil || m.passes == nil {
		return
	}
	result = normalizeLabel(result)
	m.passes.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(elapsed.Seconds())
}
