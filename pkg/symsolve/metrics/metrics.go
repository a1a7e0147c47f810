// Package metrics exposes Prometheus counters for program execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "symsolve"

// Metrics holds the collectors updated by the orchestrator. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Programs *prometheus.CounterVec
	Backups  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Programs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programs_total",
			Help:      "Programs executed, by logic type and status.",
		}, []string{"logic_type", "status"}),
		Backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_answers_total",
			Help:      "Answers supplied by the backup strategy, by logic type.",
		}, []string{"logic_type"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_seconds",
			Help:      "Wall time spent parsing and executing one program.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"logic_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.Programs, m.Backups, m.Duration)
	}
	return m
}

// Observe records one program outcome.
func (m *Metrics) Observe(logicType, status string, backup bool, d time.Duration) {
	if m == nil {
		return
	}
	m.Programs.WithLabelValues(logicType, status).Inc()
	if backup {
		m.Backups.WithLabelValues(logicType).Inc()
	}
	m.Duration.WithLabelValues(logicType).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
