package reconcile

import (
	"context"
	"fmt"

	"enrolld/internal/enrollment/models"
)

// Receipt is the authority's acknowledgement for one accepted record.
type Receipt struct {
	ServerID    string
	ServerScore int
}

// Authority is the remote social-registry endpoint records sync to.
// Push must be idempotent on the record's client ID: re-pushing an already
// accepted record returns the original receipt.
type Authority interface {
	Push(ctx context.Context, record *models.EnrollmentRecord) (Receipt, error)
}

// RejectionError signals the authority refused the record for good: the
// payload itself is at fault and retrying identical data cannot succeed.
type RejectionError struct {
	Status int
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("authority rejected record (status %d): %s", e.Status, e.Reason)
}

// Connectivity reports whether the authority is reachable right now. The
// reconciler probes once per pass; an offline verdict skips the whole pass
// without burning attempt counts.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to the Connectivity interface.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }
