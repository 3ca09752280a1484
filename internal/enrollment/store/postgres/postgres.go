// Package postgres implements the offline record store on PostgreSQL.
// Captured survey payloads land in JSONB columns; sync bookkeeping lives in
// plain columns so transitions are single-row UPDATEs.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"enrolld/internal/enrollment/models"
	"enrolld/pkg/requestcontext"
)

// Schema creates the enrollment queue table. EnsureSchema applies it at
// startup; production deployments may run it through their own migration
// tooling instead.
const Schema = `
CREATE TABLE IF NOT EXISTS enrollment_queue (
    client_id         TEXT PRIMARY KEY,
    person            JSONB NOT NULL,
    household         JSONB NOT NULL,
    location          JSONB,
    local_score       JSONB NOT NULL,
    sync_status       TEXT NOT NULL,
    attempts          INT NOT NULL DEFAULT 0,
    failure_reason    TEXT NOT NULL DEFAULT '',
    failure_permanent BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL,
    last_attempt_at   TIMESTAMPTZ,
    server_id         TEXT NOT NULL DEFAULT '',
    server_score      INT
);
CREATE INDEX IF NOT EXISTS enrollment_queue_status_created_idx
    ON enrollment_queue (sync_status, created_at);
`

// Store persists enrollment records in PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the queue table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure enrollment_queue schema: %w", err)
	}
	return nil
}

type queueRow struct {
	ClientID         string         `db:"client_id"`
	Person           []byte         `db:"person"`
	Household        []byte         `db:"household"`
	Location         []byte         `db:"location"`
	LocalScore       []byte         `db:"local_score"`
	SyncStatus       string         `db:"sync_status"`
	Attempts         int            `db:"attempts"`
	FailureReason    string         `db:"failure_reason"`
	FailurePermanent bool           `db:"failure_permanent"`
	CreatedAt        sql.NullTime   `db:"created_at"`
	LastAttemptAt    sql.NullTime   `db:"last_attempt_at"`
	ServerID         string         `db:"server_id"`
	ServerScore      sql.NullInt64  `db:"server_score"`
}

func (s *Store) Enqueue(ctx context.Context, record *models.EnrollmentRecord) (string, error) {
	clientID := record.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	person, err := json.Marshal(record.Person)
	if err != nil {
		return "", fmt.Errorf("marshal person: %w", err)
	}
	household, err := json.Marshal(record.Household)
	if err != nil {
		return "", fmt.Errorf("marshal household: %w", err)
	}
	localScore, err := json.Marshal(record.LocalScore)
	if err != nil {
		return "", fmt.Errorf("marshal local score: %w", err)
	}
	var location []byte
	if record.Location != nil {
		if location, err = json.Marshal(record.Location); err != nil {
			return "", fmt.Errorf("marshal location: %w", err)
		}
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = requestcontext.Now(ctx)
	}

	// Upsert on client_id: re-saving the same in-progress form replaces the
	// captured payload but keeps the original queue position.
	const q = `
INSERT INTO enrollment_queue
    (client_id, person, household, location, local_score, sync_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (client_id) DO UPDATE SET
    person = EXCLUDED.person,
    household = EXCLUDED.household,
    location = EXCLUDED.location,
    local_score = EXCLUDED.local_score,
    sync_status = EXCLUDED.sync_status`
	if _, err := s.db.ExecContext(ctx, q,
		clientID, person, household, location, localScore, string(models.SyncPending), createdAt,
	); err != nil {
		return "", fmt.Errorf("enqueue enrollment %s: %w", clientID, err)
	}
	return clientID, nil
}

func (s *Store) ListPending(ctx context.Context) ([]*models.EnrollmentRecord, error) {
	const q = `
SELECT client_id, person, household, location, local_score, sync_status,
       attempts, failure_reason, failure_permanent, created_at,
       last_attempt_at, server_id, server_score
FROM enrollment_queue
WHERE sync_status IN ($1, $2)
ORDER BY created_at ASC, client_id ASC`

	var rows []queueRow
	if err := s.db.SelectContext(ctx, &rows, q,
		string(models.SyncPending), string(models.SyncFailed),
	); err != nil {
		return nil, fmt.Errorf("list pending enrollments: %w", err)
	}

	out := make([]*models.EnrollmentRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) MarkSyncing(ctx context.Context, clientID string) error {
	const q = `
UPDATE enrollment_queue
SET sync_status = $2, attempts = attempts + 1, last_attempt_at = $3
WHERE client_id = $1`
	if _, err := s.db.ExecContext(ctx, q, clientID, string(models.SyncSyncing), requestcontext.Now(ctx)); err != nil {
		return fmt.Errorf("mark syncing %s: %w", clientID, err)
	}
	return nil
}

func (s *Store) MarkSynced(ctx context.Context, clientID, serverID string, serverScore int) error {
	const q = `
UPDATE enrollment_queue
SET sync_status = $2, server_id = $3, server_score = $4,
    failure_reason = '', failure_permanent = FALSE
WHERE client_id = $1`
	if _, err := s.db.ExecContext(ctx, q, clientID, string(models.SyncSynced), serverID, serverScore); err != nil {
		return fmt.Errorf("mark synced %s: %w", clientID, err)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, clientID, reason string, permanent bool) error {
	const q = `
UPDATE enrollment_queue
SET sync_status = $2, failure_reason = $3, failure_permanent = $4
WHERE client_id = $1`
	if _, err := s.db.ExecContext(ctx, q, clientID, string(models.SyncFailed), reason, permanent); err != nil {
		return fmt.Errorf("mark failed %s: %w", clientID, err)
	}
	return nil
}

func (s *Store) ReclaimSyncing(ctx context.Context) (int, error) {
	const q = `
UPDATE enrollment_queue
SET sync_status = $2, failure_reason = 'sync interrupted', failure_permanent = FALSE
WHERE sync_status = $1`
	res, err := s.db.ExecContext(ctx, q, string(models.SyncSyncing), string(models.SyncFailed))
	if err != nil {
		return 0, fmt.Errorf("reclaim syncing enrollments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim syncing enrollments: %w", err)
	}
	return int(n), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	const q = `SELECT COUNT(*) FROM enrollment_queue WHERE sync_status <> $1`
	if err := s.db.GetContext(ctx, &count, q, string(models.SyncSynced)); err != nil {
		return 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return count, nil
}

func (r *queueRow) toRecord() (*models.EnrollmentRecord, error) {
	rec := &models.EnrollmentRecord{
		ClientID:         r.ClientID,
		SyncStatus:       models.SyncStatus(r.SyncStatus),
		Attempts:         r.Attempts,
		FailureReason:    r.FailureReason,
		FailurePermanent: r.FailurePermanent,
		ServerID:         r.ServerID,
	}
	if err := json.Unmarshal(r.Person, &rec.Person); err != nil {
		return nil, fmt.Errorf("unmarshal person for %s: %w", r.ClientID, err)
	}
	if err := json.Unmarshal(r.Household, &rec.Household); err != nil {
		return nil, fmt.Errorf("unmarshal household for %s: %w", r.ClientID, err)
	}
	if err := json.Unmarshal(r.LocalScore, &rec.LocalScore); err != nil {
		return nil, fmt.Errorf("unmarshal local score for %s: %w", r.ClientID, err)
	}
	if len(r.Location) > 0 {
		rec.Location = &models.Geolocation{}
		if err := json.Unmarshal(r.Location, rec.Location); err != nil {
			return nil, fmt.Errorf("unmarshal location for %s: %w", r.ClientID, err)
		}
	}
	if r.CreatedAt.Valid {
		rec.CreatedAt = r.CreatedAt.Time
	}
	if r.LastAttemptAt.Valid {
		rec.LastAttemptAt = r.LastAttemptAt.Time
	}
	if r.ServerScore.Valid {
		score := int(r.ServerScore.Int64)
		rec.ServerScore = &score
	}
	return rec, nil
}
