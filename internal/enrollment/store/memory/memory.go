// Package memory implements the offline record store on a map. It backs
// unit tests and local development; production deployments use the
// PostgreSQL or Redis implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"enrolld/internal/enrollment/models"
	"enrolld/pkg/requestcontext"
)

// Store keeps enrollment records in memory. All methods are safe for
// concurrent use; records are cloned on the way in and out so callers can
// never mutate the stored representation.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.EnrollmentRecord
}

func New() *Store {
	return &Store{records: make(map[string]*models.EnrollmentRecord)}
}

func (s *Store) Enqueue(ctx context.Context, record *models.EnrollmentRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := record.Clone()
	if stored.ClientID == "" {
		stored.ClientID = uuid.NewString()
	}
	stored.SyncStatus = models.SyncPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = requestcontext.Now(ctx)
	}
	if existing, ok := s.records[stored.ClientID]; ok {
		// Idempotent upsert: keep the original creation time so the queue
		// order is stable across re-saves.
		stored.CreatedAt = existing.CreatedAt
	}
	s.records[stored.ClientID] = stored
	return stored.ClientID, nil
}

func (s *Store) ListPending(ctx context.Context) ([]*models.EnrollmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.EnrollmentRecord, 0, len(s.records))
	for _, rec := range s.records {
		if rec.SyncStatus == models.SyncPending || rec.SyncStatus == models.SyncFailed {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkSyncing(ctx context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[clientID]
	if !ok {
		return nil
	}
	rec.SyncStatus = models.SyncSyncing
	rec.Attempts++
	rec.LastAttemptAt = requestcontext.Now(ctx)
	return nil
}

func (s *Store) MarkSynced(ctx context.Context, clientID, serverID string, serverScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[clientID]
	if !ok {
		return nil
	}
	rec.SyncStatus = models.SyncSynced
	rec.ServerID = serverID
	score := serverScore
	rec.ServerScore = &score
	rec.FailureReason = ""
	rec.FailurePermanent = false
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, clientID, reason string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[clientID]
	if !ok {
		return nil
	}
	rec.SyncStatus = models.SyncFailed
	rec.FailureReason = reason
	rec.FailurePermanent = permanent
	return nil
}

func (s *Store) ReclaimSyncing(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for _, rec := range s.records {
		if rec.SyncStatus != models.SyncSyncing {
			continue
		}
		rec.SyncStatus = models.SyncFailed
		rec.FailureReason = "sync interrupted"
		rec.FailurePermanent = false
		reclaimed++
	}
	return reclaimed, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.SyncStatus != models.SyncSynced {
			count++
		}
	}
	return count, nil
}
