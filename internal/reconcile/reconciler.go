// Package reconcile drains the offline enrollment queue to the registry
// authority. A pass is sequential and oldest-first so queue order mirrors
// capture order; concurrent triggers coalesce into one running pass.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/store"
	"enrolld/internal/reconcile/metrics"
	audit "enrolld/pkg/platform/audit"
	"enrolld/pkg/platform/circuit"
	"enrolld/pkg/requestcontext"
)

// Summary is the outcome of one sync pass.
type Summary struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Auditor records sync events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Reconciler pushes queued records to the authority and applies the
// resulting transitions. Safe for concurrent use; overlapping Sync calls
// share a single pass.
type Reconciler struct {
	store        store.Store
	authority    Authority
	connectivity Connectivity
	policy       RetryPolicy
	breaker      *circuit.Breaker
	metrics      *metrics.Metrics
	auditor      Auditor
	logger       *slog.Logger
	tracer       trace.Tracer

	group singleflight.Group
}

func New(st store.Store, authority Authority, connectivity Connectivity, policy RetryPolicy, m *metrics.Metrics, auditor Auditor, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:        st,
		authority:    authority,
		connectivity: connectivity,
		policy:       policy,
		breaker:      circuit.New("authority"),
		metrics:      m,
		auditor:      auditor,
		logger:       logger,
		tracer:       otel.Tracer("enrolld/reconcile"),
	}
}

// SyncAll runs one pass over the pending queue. Concurrent callers while a
// pass is running receive that pass's summary instead of starting another.
func (r *Reconciler) SyncAll(ctx context.Context) (Summary, error) {
	result, err, _ := r.group.Do("sync", func() (any, error) {
		return r.pass(ctx)
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

func (r *Reconciler) pass(ctx context.Context) (Summary, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "reconcile.pass")
	defer span.End()
	defer r.metrics.ObservePass(start)

	// Records interrupted mid-transition by an earlier pass or a crash sit
	// in SYNCING, which ListPending never returns; fold them back in first.
	if reclaimed, err := r.store.ReclaimSyncing(ctx); err != nil {
		return Summary{}, fmt.Errorf("reclaim interrupted records: %w", err)
	} else if reclaimed > 0 {
		r.logger.WarnContext(ctx, "requeued records from an interrupted pass", "reclaimed", reclaimed)
	}

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list pending records: %w", err)
	}
	if len(pending) == 0 {
		return Summary{}, nil
	}

	_ = r.auditor.Emit(ctx, audit.Event{
		Action: string(audit.EventSyncStarted),
		Detail: fmt.Sprintf("pending=%d", len(pending)),
	})

	var summary Summary
	if !r.connectivity.Online(ctx) {
		summary.Skipped = len(pending)
		r.logger.InfoContext(ctx, "sync skipped, authority offline", "pending", len(pending))
		r.finish(ctx, span, summary)
		return summary, nil
	}

	now := requestcontext.Now(ctx)
	for i, record := range pending {
		if err := ctx.Err(); err != nil {
			// The current record was already settled; everything behind it
			// waits for the next pass.
			summary.Skipped += len(pending) - i
			break
		}
		if r.breaker.IsOpen() {
			summary.Skipped += len(pending) - i
			r.logger.WarnContext(ctx, "sync aborted, authority breaker open",
				"remaining", len(pending)-i)
			break
		}
		if !r.policy.Eligible(record, now) {
			summary.Skipped++
			continue
		}
		r.syncOne(ctx, record, &summary)
	}

	r.finish(ctx, span, summary)
	return summary, nil
}

func (r *Reconciler) syncOne(ctx context.Context, record *models.EnrollmentRecord, summary *Summary) {
	if err := r.store.MarkSyncing(ctx, record.ClientID); err != nil {
		r.logger.ErrorContext(ctx, "failed to mark record syncing",
			"client_id", record.ClientID, "error", err)
		summary.Failed++
		return
	}

	receipt, err := r.authority.Push(ctx, record)
	if err != nil {
		r.handlePushFailure(ctx, record, err)
		summary.Failed++
		return
	}

	r.breaker.RecordSuccess()
	// A fresh context for the transition: a cancellation racing a successful
	// push must not strand the record in SYNCING.
	if err := r.store.MarkSynced(context.WithoutCancel(ctx), record.ClientID, receipt.ServerID, receipt.ServerScore); err != nil {
		r.logger.ErrorContext(ctx, "failed to mark record synced",
			"client_id", record.ClientID, "error", err)
		summary.Failed++
		return
	}
	summary.Synced++

	if receipt.ServerScore != record.LocalScore.Score {
		// The authority's number wins; we only surface the divergence.
		r.metrics.IncrementDivergence()
		r.logger.InfoContext(ctx, "score divergence",
			"client_id", record.ClientID,
			"local_score", record.LocalScore.Score,
			"server_score", receipt.ServerScore,
		)
	}
	_ = r.auditor.Emit(ctx, audit.Event{
		Action:   string(audit.EventRecordSynced),
		ClientID: record.ClientID,
		Detail:   fmt.Sprintf("server_id=%s server_score=%d", receipt.ServerID, receipt.ServerScore),
	})
}

func (r *Reconciler) handlePushFailure(ctx context.Context, record *models.EnrollmentRecord, err error) {
	// Store transitions below run on a fresh context: when the pass was
	// cancelled mid-push the record must still leave SYNCING.
	storeCtx := context.WithoutCancel(ctx)

	var rejection *RejectionError
	if errors.As(err, &rejection) {
		// The authority answered, so this is not a connectivity failure.
		r.breaker.RecordSuccess()
		if markErr := r.store.MarkFailed(storeCtx, record.ClientID, rejection.Reason, true); markErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark record rejected",
				"client_id", record.ClientID, "error", markErr)
		}
		_ = r.auditor.Emit(ctx, audit.Event{
			Action:   string(audit.EventRecordRejected),
			ClientID: record.ClientID,
			Detail:   rejection.Reason,
		})
		r.logger.WarnContext(ctx, "record rejected by authority",
			"client_id", record.ClientID, "reason", rejection.Reason)
		return
	}

	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.metrics.IncrementBreakerOpen()
		r.logger.WarnContext(ctx, "authority breaker opened")
	}
	if markErr := r.store.MarkFailed(storeCtx, record.ClientID, err.Error(), false); markErr != nil {
		r.logger.ErrorContext(ctx, "failed to mark record failed",
			"client_id", record.ClientID, "error", markErr)
	}
	if r.policy.NeedsAttention(record) {
		r.logger.WarnContext(ctx, "record needs attention",
			"client_id", record.ClientID, "attempts", record.Attempts+1)
	}
}

func (r *Reconciler) finish(ctx context.Context, span trace.Span, summary Summary) {
	span.SetAttributes(
		attribute.Int("sync.synced", summary.Synced),
		attribute.Int("sync.failed", summary.Failed),
		attribute.Int("sync.skipped", summary.Skipped),
	)
	r.metrics.RecordOutcome("synced", summary.Synced)
	r.metrics.RecordOutcome("failed", summary.Failed)
	r.metrics.RecordOutcome("skipped", summary.Skipped)
	_ = r.auditor.Emit(context.WithoutCancel(ctx), audit.Event{
		Action: string(audit.EventSyncCompleted),
		Detail: fmt.Sprintf("synced=%d failed=%d skipped=%d", summary.Synced, summary.Failed, summary.Skipped),
	})
	r.logger.InfoContext(ctx, "sync pass complete",
		"synced", summary.Synced,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
}
