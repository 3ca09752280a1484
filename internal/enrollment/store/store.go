// Package store defines the durable offline queue of enrollment records.
// Implementations must survive process restart (memory excepted, it backs
// tests and local development) and keep status transitions atomic per
// record so a concurrent sync pass never observes a half-updated record.
package store

import (
	"context"

	"enrolld/internal/enrollment/models"
)

// Store is the offline record queue.
//
// Transition operations (MarkSyncing, MarkSynced, MarkFailed) are no-ops
// when the record does not exist: a concurrent pass may already have synced
// and purged it, and that race is benign.
type Store interface {
	// Enqueue persists a record with status PENDING, assigning a client ID
	// when the record has none. Re-enqueueing an already-assigned client ID
	// updates in place; it never duplicates.
	Enqueue(ctx context.Context, record *models.EnrollmentRecord) (string, error)

	// ListPending returns records with status PENDING or FAILED, ordered by
	// creation time ascending so the oldest record syncs first.
	ListPending(ctx context.Context) ([]*models.EnrollmentRecord, error)

	// MarkSyncing transitions a record to SYNCING, incrementing its attempt
	// count and stamping the attempt time.
	MarkSyncing(ctx context.Context, clientID string) error

	// MarkSynced records the authority's receipt: server ID and
	// server-recomputed score. The record leaves the pending queue.
	MarkSynced(ctx context.Context, clientID, serverID string, serverScore int) error

	// MarkFailed transitions a record to FAILED with a reason. Permanent
	// failures need human attention and are not retried automatically.
	MarkFailed(ctx context.Context, clientID, reason string, permanent bool) error

	// ReclaimSyncing transitions every record left in SYNCING back to FAILED
	// (transient) so a later pass retries it. A record only stays SYNCING
	// across passes when a previous pass was interrupted mid-transition or
	// the process crashed; run at pass start. Returns the number reclaimed.
	ReclaimSyncing(ctx context.Context) (int, error)

	// Count returns the number of records not yet SYNCED, for the pending
	// badge in the surveyor UI.
	Count(ctx context.Context) (int, error)
}
