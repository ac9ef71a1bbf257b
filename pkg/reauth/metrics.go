package reauth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authclient"

// Refresh outcomes used as the "outcome" label.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeCanceled = "canceled"
)

// Metrics holds Prometheus metrics for re-authentication.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	ReplayTotal     prometheus.Counter
	Waiters         prometheus.Gauge
}

// NewMetrics creates and registers re-authentication metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reauth",
			Name:      "refresh_total",
			Help:      "Refresh operations by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reauth",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReplayTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reauth",
			Name:      "replay_total",
			Help:      "Requests replayed after a successful refresh.",
		}),
		Waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reauth",
			Name:      "refresh_waiters",
			Help:      "Requests currently waiting on a refresh operation.",
		}),
	}

	reg.MustRegister(m.RefreshTotal, m.RefreshDuration, m.ReplayTotal, m.Waiters)
	return m
}

func (m *Metrics) refreshed(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

func (m *Metrics) replayed() {
	if m == nil {
		return
	}
	m.ReplayTotal.Inc()
}

func (m *Metrics) waiting(delta float64) {
	if m == nil {
		return
	}
	m.Waiters.Add(delta)
}
