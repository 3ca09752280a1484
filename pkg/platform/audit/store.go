package audit

import "context"

// Store persists audit events. Implementations must be safe for concurrent
// use; Append is called from request handlers and background workers.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySurveyor(ctx context.Context, surveyorID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
