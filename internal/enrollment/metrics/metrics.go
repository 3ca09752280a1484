package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrollment module: capture volume
// and the pending-sync backlog surfaced to the surveyor UI.
type Metrics struct {
	EnrollmentsSaved prometheus.Counter
	PreviewsComputed prometheus.Counter
	SaveDuration     prometheus.Histogram
	PendingRecords   prometheus.Gauge
}

// New creates a Metrics instance with all enrollment module metrics
// registered on the default registry.
func New() *Metrics {
	return &Metrics{
		EnrollmentsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_enrollments_saved_total",
			Help: "Total number of enrollments saved to the offline queue",
		}),
		PreviewsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_score_previews_total",
			Help: "Total number of vulnerability score previews computed",
		}),
		SaveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolld_enrollment_save_duration_seconds",
			Help:    "Duration of enrollment save operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		PendingRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "enrolld_pending_records",
			Help: "Number of enrollment records not yet confirmed synced",
		}),
	}
}

// IncrementEnrollmentsSaved records a successful save.
func (m *Metrics) IncrementEnrollmentsSaved() {
	if m == nil {
		return
	}
	m.EnrollmentsSaved.Inc()
}

// IncrementPreviewsComputed records a preview computation.
func (m *Metrics) IncrementPreviewsComputed() {
	if m == nil {
		return
	}
	m.PreviewsComputed.Inc()
}

// ObserveSave records the duration of a save. Call with time.Now() at the
// start of the operation.
func (m *Metrics) ObserveSave(start time.Time) {
	if m == nil {
		return
	}
	m.SaveDuration.Observe(time.Since(start).Seconds())
}

// SetPendingRecords updates the backlog gauge.
func (m *Metrics) SetPendingRecords(n int) {
	if m == nil {
		return
	}
	m.PendingRecords.Set(float64(n))
}
