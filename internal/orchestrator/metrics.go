package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
)

// Metrics exposes Prometheus collectors that report task activity.
type Metrics struct {
	taskDuration *prometheus.HistogramVec
	spawnsTotal  prometheus.Counter
	tasksActive  prometheus.Gauge
}

// NewMetrics constructs collectors against the provided registerer. Pass a
// fresh registry in tests to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cowork",
				Subsystem: "orchestrator",
				Name:      "task_duration_seconds",
				Help:      "Time from task start to its terminal status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		spawnsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cowork",
				Subsystem: "orchestrator",
				Name:      "spawns_total",
				Help:      "Total number of child tasks spawned.",
			},
		),
		tasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cowork",
				Subsystem: "orchestrator",
				Name:      "tasks_active",
				Help:      "Number of tasks with a live executor.",
			},
		),
	}
	reg.MustRegister(m.taskDuration, m.spawnsTotal, m.tasksActive)
	return m
}

func (m *Metrics) observeFinished(status task.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) spawned() {
	if m == nil {
		return
	}
	m.spawnsTotal.Inc()
}

func (m *Metrics) executorStarted() {
	if m == nil {
		return
	}
	m.tasksActive.Inc()
}

func (m *Metrics) executorStopped() {
	if m == nil {
		return
	}
	m.tasksActive.Dec()
}
