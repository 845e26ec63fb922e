package tools

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments tool dispatch. Constructed per registry so tests get
// isolated collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers dispatch collectors on reg. A nil reg disables
// registration but keeps the collectors usable.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cowork",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool dispatches by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cowork",
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "Tool body execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

func (m *Metrics) observe(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(seconds)
}
