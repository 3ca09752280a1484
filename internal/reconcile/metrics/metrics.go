package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks sync pass outcomes. Counters are labelled by record
// outcome so dashboards can separate transient churn from rejections.
type Metrics struct {
	Passes       prometheus.Counter
	PassDuration prometheus.Histogram
	Records      *prometheus.CounterVec
	Divergences  prometheus.Counter
	BreakerOpens prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Passes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_sync_passes_total",
			Help: "Total number of sync passes executed",
		}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolld_sync_pass_duration_seconds",
			Help:    "Duration of sync passes",
			Buckets: prometheus.DefBuckets,
		}),
		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_sync_records_total",
			Help: "Record outcomes per sync pass",
		}, []string{"outcome"}),
		Divergences: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_sync_score_divergence_total",
			Help: "Records where the authority's score differs from the local preview",
		}),
		BreakerOpens: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_sync_breaker_opens_total",
			Help: "Times the authority circuit breaker opened mid-pass",
		}),
	}
}

func (m *Metrics) ObservePass(start time.Time) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	m.PassDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordOutcome(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Records.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) IncrementDivergence() {
	if m == nil {
		return
	}
	m.Divergences.Inc()
}

func (m *Metrics) IncrementBreakerOpen() {
	if m == nil {
		return
	}
	m.BreakerOpens.Inc()
}
