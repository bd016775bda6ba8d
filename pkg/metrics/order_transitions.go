package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderTransitionMetrics counts order actions handled by the order store.
type OrderTransitionMetrics struct {
	transitions *prometheus.CounterVec
}

// NewOrderTransitionMetrics registers the order transition counter.
func NewOrderTransitionMetrics(reg prometheus.Registerer) *OrderTransitionMetrics {
	if reg == nil {
		return &OrderTransitionMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order actions processed by the order store, by action and result.",
	}, []string{"action", "result"})
	reg.MustRegister(transitions)
	return &OrderTransitionMetrics{transitions: transitions}
}

// Inc records one processed action. result is typically "applied",
// "idempotent" or an error code.
func (m *OrderTransitionMetrics) Inc(action, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(result)).Inc()
}
