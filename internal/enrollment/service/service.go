// Package service orchestrates enrollment capture on top of the workflow
// state machine and the offline queue. Handlers stay thin; everything that
// touches more than one collaborator lives here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"enrolld/internal/enrollment/metrics"
	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/scoring"
	"enrolld/internal/enrollment/store"
	"enrolld/internal/enrollment/workflow"
	audit "enrolld/pkg/platform/audit"
	"enrolld/pkg/requestcontext"
)

// Auditor records domain events; the concrete publisher decides whether they
// land in memory, Postgres or Kafka.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   store.Store
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(st store.Store, auditor Auditor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: st, auditor: auditor, metrics: m, logger: logger}
}

// PreviewScore computes the vulnerability assessment for a snapshot without
// persisting anything. The surveyor sees this before deciding to enroll.
// Partial forms are allowed, so enum values are canonicalized best-effort
// instead of rejected: a case variant scores the same as its canonical form,
// and whatever does not parse scores as unset.
func (s *Service) PreviewScore(ctx context.Context, person models.PersonRecord, household models.HouseholdRecord) models.Assessment {
	person, household = canonicalize(person, household)
	assessment := scoring.Compute(person, household, requestcontext.Now(ctx))
	s.metrics.IncrementPreviewsComputed()
	_ = s.auditor.Emit(ctx, audit.Event{
		Action: string(audit.EventScorePreviewed),
		Detail: fmt.Sprintf("score=%d category=%s", assessment.Score, assessment.Category),
	})
	return assessment
}

func canonicalize(person models.PersonRecord, household models.HouseholdRecord) (models.PersonRecord, models.HouseholdRecord) {
	if gender, err := models.ParseGender(string(person.Gender)); err == nil {
		person.Gender = gender
	}
	if level, err := models.ParseEducationLevel(string(person.EducationLevel)); err == nil {
		person.EducationLevel = level
	}
	if province, err := models.ParseProvince(string(person.Province)); err == nil {
		person.Province = province
	}
	if zone, err := models.ParseZoneType(string(household.ZoneType)); err == nil {
		household.ZoneType = zone
	}
	for _, v := range []*models.TriState{
		&household.HasElectricity,
		&household.HasWater,
		&household.HasDisabledMember,
		&household.HasSavings,
		&household.HasFoodSecurity,
	} {
		if answer, err := models.ParseTriState(string(*v)); err == nil {
			*v = answer
		}
	}
	return person, household
}

// Submission carries one complete enrollment form as captured on the device.
type Submission struct {
	Person    models.PersonRecord
	Household models.HouseholdRecord
	Location  *models.Geolocation
}

// Submit drives a fresh workflow through every step with the submitted data
// and queues the resulting record. Validation failures surface as
// workflow.FieldErrors so the handler can map them field by field.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.EnrollmentRecord, error) {
	start := time.Now()

	w := workflow.New()
	w.SetLocation(sub.Location)
	if err := w.SubmitIdentity(ctx, sub.Person); err != nil {
		return nil, err
	}
	if err := w.SubmitHousehold(ctx, sub.Household); err != nil {
		return nil, err
	}
	if err := w.Advance(); err != nil {
		return nil, err
	}
	preview := *w.Preview()
	// The workflow normalized phone and NIP during validation; echo the
	// canonical form back, not the raw submission.
	person := w.Person()
	household := w.Household()

	clientID, err := w.Save(ctx, s.store)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEnrollmentsSaved()
	s.metrics.ObserveSave(start)
	s.refreshBacklogGauge(ctx)

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:   string(audit.EventEnrollmentSaved),
		ClientID: clientID,
		Detail:   fmt.Sprintf("score=%d category=%s", preview.Score, preview.Category),
	})
	s.logger.InfoContext(ctx, "enrollment queued",
		"client_id", clientID,
		"score", preview.Score,
		"category", preview.Category,
	)

	record := &models.EnrollmentRecord{
		ClientID:   clientID,
		Person:     person,
		Household:  household,
		Location:   sub.Location,
		LocalScore: preview,
		SyncStatus: models.SyncPending,
		CreatedAt:  requestcontext.Now(ctx),
	}
	return record, nil
}

// PendingList returns queued records oldest first.
func (s *Service) PendingList(ctx context.Context) ([]*models.EnrollmentRecord, error) {
	return s.store.ListPending(ctx)
}

// PendingCount returns the number of records not yet confirmed synced.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.SetPendingRecords(count)
	return count, nil
}

func (s *Service) refreshBacklogGauge(ctx context.Context) {
	if count, err := s.store.Count(ctx); err == nil {
		s.metrics.SetPendingRecords(count)
	}
}
