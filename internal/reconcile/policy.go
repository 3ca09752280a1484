package reconcile

import (
	"time"

	"enrolld/internal/enrollment/models"
)

// RetryPolicy gates which queued records a pass will attempt.
type RetryPolicy struct {
	// MaxAttempts is the attempt count past which a record is flagged for
	// field-office attention. It is not a hard cap: later passes still try,
	// so a record never silently dies in the queue.
	MaxAttempts int

	// MinInterval is the minimum spacing between attempts for one record.
	MinInterval time.Duration
}

// DefaultRetryPolicy matches field conditions: generous spacing so a record
// is not retried on every sync trigger while coverage flaps.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, MinInterval: 30 * time.Second}
}

// Eligible reports whether this pass should attempt the record now.
// Permanent failures are never eligible; they wait for a surveyor to fix
// the data and resubmit.
func (p RetryPolicy) Eligible(record *models.EnrollmentRecord, now time.Time) bool {
	if record.FailurePermanent {
		return false
	}
	if p.MinInterval > 0 && !record.LastAttemptAt.IsZero() {
		if now.Sub(record.LastAttemptAt) < p.MinInterval {
			return false
		}
	}
	return true
}

// NeedsAttention reports whether the record has failed often enough to
// surface in the needs-attention list.
func (p RetryPolicy) NeedsAttention(record *models.EnrollmentRecord) bool {
	return p.MaxAttempts > 0 && record.Attempts >= p.MaxAttempts
}
