// Package jobmetrics instruments the worker's task handlers.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are keyed by task type, e.g. "invoicing:create-due". The label is
// "task" so it does not clash with the scrape target's job label.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	items       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer means
// the process-wide default, registered once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentals_task_runs_total",
			Help: "Task handler runs by task type and result.",
		}, []string{"task", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentals_task_duration_seconds",
			Help:    "Task handler duration.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300},
		}, []string{"task"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentals_task_items_total",
			Help: "Records a task touched, e.g. invoices created or reminders sent.",
		}, []string{"task", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rentals_task_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"task"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.items, m.lastSuccess)
	return m
}

// Run times one handler execution.
type Run struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts timing task. It is safe on a nil *Metrics.
func (m *Metrics) Track(task string) *Run {
	return &Run{metrics: m, task: task, start: time.Now()}
}

// End records the result and hands err back so handlers can
// `defer func() { err = run.End(err) }()`.
func (r *Run) End(err error) error {
	if r == nil || r.metrics == nil {
		return err
	}
	m := r.metrics
	m.duration.WithLabelValues(r.task).Observe(time.Since(r.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(r.task, "failure").Inc()
		return err
	}
	m.runs.WithLabelValues(r.task, "success").Inc()
	m.lastSuccess.WithLabelValues(r.task).SetToCurrentTime()
	return nil
}

// AddItems counts records for task under outcome. Zero counts are dropped.
func (m *Metrics) AddItems(task, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.items.WithLabelValues(task, outcome).Add(float64(count))
}
