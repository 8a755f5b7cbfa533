package resource

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records orchestrator runs. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the orchestrator collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auxcare_fetch_total",
			Help: "Remote operation runs by resource and terminal outcome (dropped = completion ignored)",
		}, []string{"resource", "outcome"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "auxcare_fetch_in_flight",
			Help: "Remote operations currently in flight by resource",
		}, []string{"resource"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auxcare_fetch_duration_seconds",
			Help:    "Latency of remote operations by resource",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
	}
}

func (m *Metrics) started(resource string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(resource).Inc()
}

func (m *Metrics) finished(resource, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(resource).Dec()
	m.runs.WithLabelValues(resource, outcome).Inc()
	m.duration.WithLabelValues(resource).Observe(elapsed.Seconds())
}
