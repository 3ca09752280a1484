// Package redis implements the offline record store on Redis. Records live
// as JSON values keyed by client ID; a sorted set indexes non-synced
// records by creation time so the queue drains oldest-first. Transitions
// use optimistic WATCH transactions for per-record atomicity.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"enrolld/internal/enrollment/models"
	"enrolld/pkg/requestcontext"
)

const (
	recordKeyPrefix = "enrolld:rec:"
	pendingIndexKey = "enrolld:pending"
	maxTxRetries    = 5
)

// Store persists enrollment records in Redis.
type Store struct {
	client *goredis.Client
}

func New(client *goredis.Client) *Store {
	return &Store{client: client}
}

func recordKey(clientID string) string { return recordKeyPrefix + clientID }

func (s *Store) Enqueue(ctx context.Context, record *models.EnrollmentRecord) (string, error) {
	stored := record.Clone()
	if stored.ClientID == "" {
		stored.ClientID = uuid.NewString()
	}
	stored.SyncStatus = models.SyncPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = requestcontext.Now(ctx)
	}

	key := recordKey(stored.ClientID)
	err := s.withTx(ctx, key, func(tx *goredis.Tx) error {
		existing, err := s.load(ctx, tx, stored.ClientID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Idempotent upsert: keep the original queue position.
			stored.CreatedAt = existing.CreatedAt
		}
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, pendingIndexKey, goredis.Z{
				Score:  float64(stored.CreatedAt.UnixNano()),
				Member: stored.ClientID,
			})
			return nil
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("enqueue enrollment %s: %w", stored.ClientID, err)
	}
	return stored.ClientID, nil
}

func (s *Store) ListPending(ctx context.Context) ([]*models.EnrollmentRecord, error) {
	ids, err := s.client.ZRange(ctx, pendingIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending index: %w", err)
	}
	out := make([]*models.EnrollmentRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, recordKey(id)).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load enrollment %s: %w", id, err)
		}
		rec := &models.EnrollmentRecord{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("unmarshal enrollment %s: %w", id, err)
		}
		if rec.SyncStatus == models.SyncPending || rec.SyncStatus == models.SyncFailed {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) MarkSyncing(ctx context.Context, clientID string) error {
	now := requestcontext.Now(ctx)
	return s.update(ctx, clientID, func(rec *models.EnrollmentRecord) {
		rec.SyncStatus = models.SyncSyncing
		rec.Attempts++
		rec.LastAttemptAt = now
	}, false)
}

func (s *Store) MarkSynced(ctx context.Context, clientID, serverID string, serverScore int) error {
	return s.update(ctx, clientID, func(rec *models.EnrollmentRecord) {
		rec.SyncStatus = models.SyncSynced
		rec.ServerID = serverID
		score := serverScore
		rec.ServerScore = &score
		rec.FailureReason = ""
		rec.FailurePermanent = false
	}, true)
}

func (s *Store) MarkFailed(ctx context.Context, clientID, reason string, permanent bool) error {
	return s.update(ctx, clientID, func(rec *models.EnrollmentRecord) {
		rec.SyncStatus = models.SyncFailed
		rec.FailureReason = reason
		rec.FailurePermanent = permanent
	}, false)
}

func (s *Store) ReclaimSyncing(ctx context.Context) (int, error) {
	ids, err := s.client.ZRange(ctx, pendingIndexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list pending index: %w", err)
	}
	reclaimed := 0
	for _, id := range ids {
		changed := false
		err := s.update(ctx, id, func(rec *models.EnrollmentRecord) {
			if rec.SyncStatus != models.SyncSyncing {
				return
			}
			rec.SyncStatus = models.SyncFailed
			rec.FailureReason = "sync interrupted"
			rec.FailurePermanent = false
			changed = true
		}, false)
		if err != nil {
			return reclaimed, err
		}
		if changed {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, pendingIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return int(n), nil
}

// update applies mutate under a WATCH transaction. Missing records are a
// no-op: a concurrent pass may have synced and purged the entry already.
func (s *Store) update(ctx context.Context, clientID string, mutate func(*models.EnrollmentRecord), dropFromIndex bool) error {
	key := recordKey(clientID)
	err := s.withTx(ctx, key, func(tx *goredis.Tx) error {
		rec, err := s.load(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		mutate(rec)
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if dropFromIndex {
				pipe.ZRem(ctx, pendingIndexKey, clientID)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("update enrollment %s: %w", clientID, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, key string, fn func(tx *goredis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
		// Contention on the same record; brief pause before retrying.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 5 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction contention on %s", key)
}

func (s *Store) load(ctx context.Context, tx *goredis.Tx, clientID string) (*models.EnrollmentRecord, error) {
	raw, err := tx.Get(ctx, recordKey(clientID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load enrollment %s: %w", clientID, err)
	}
	rec := &models.EnrollmentRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("unmarshal enrollment %s: %w", clientID, err)
	}
	return rec, nil
}
