package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics instruments the engine. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tiers    *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_requests_total",
			Help: "Analytics operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_request_duration_seconds",
			Help:    "Analytics operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_fallback_tier_total",
			Help: "Which fallback strategy produced a categorical distribution.",
		}, []string{"field", "tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.tiers)
	}
	return m
}

func (m *Metrics) observe(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) tier(field, tier string) {
	if m == nil {
		return
	}
	if tier == "" {
		tier = "none"
	}
	m.tiers.WithLabelValues(field, tier).Inc()
}
