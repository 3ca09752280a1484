package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/service"
	"enrolld/internal/enrollment/store/memory"
	"enrolld/internal/enrollment/workflow"
	"enrolld/internal/platform/logger"
	audit "enrolld/pkg/platform/audit"
	auditmem "enrolld/pkg/platform/audit/store/memory"
	"enrolld/pkg/requestcontext"
)

func newService(t *testing.T) (*service.Service, *memory.Store, *auditmem.InMemoryStore) {
	t.Helper()
	st := memory.New()
	auditStore := auditmem.NewInMemoryStore()
	pub := audit.NewPublisher(auditStore)
	t.Cleanup(pub.Close)
	svc := service.NewService(st, pub, nil, logger.New())
	return svc, st, auditStore
}

func testContext() context.Context {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), now)
}

func validSubmission() service.Submission {
	return service.Submission{
		Person: models.PersonRecord{
			FirstName: "Marie",
			LastName:  "Ondo",
			BirthDate: "1990-04-12",
			Gender:    models.GenderFemale,
			Phone:     "01234567",
			Province:  models.ProvinceEstuaire,
		},
		Household: models.HouseholdRecord{
			Size:     4,
			ZoneType: models.ZoneUrbanCenter,
		},
	}
}

func TestSubmit_QueuesRecord(t *testing.T) {
	svc, st, auditStore := newService(t)
	ctx := testContext()

	record, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	require.NotEmpty(t, record.ClientID)
	assert.Equal(t, models.SyncPending, record.SyncStatus)
	assert.Equal(t, "+2411234567", record.Person.Phone)

	pending, err := st.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, record.ClientID, pending[0].ClientID)

	events, err := auditStore.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventEnrollmentSaved), events[0].Action)
	assert.Equal(t, record.ClientID, events[0].ClientID)
}

func TestSubmit_FieldErrorsSurface(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := testContext()

	sub := validSubmission()
	sub.Person.FirstName = ""
	sub.Person.Phone = "12345"

	_, err := svc.Submit(ctx, sub)
	var fieldErrs workflow.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	byField := fieldErrs.ByField()
	assert.Contains(t, byField, "first_name")
	assert.Contains(t, byField, "phone")

	pending, err := st.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_HouseholdErrorsSurface(t *testing.T) {
	svc, _, _ := newService(t)

	sub := validSubmission()
	sub.Household.Size = 0

	_, err := svc.Submit(testContext(), sub)
	var fieldErrs workflow.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs.ByField(), "size")
}

func TestPreviewScore_DoesNotPersist(t *testing.T) {
	svc, st, auditStore := newService(t)
	ctx := testContext()

	sub := validSubmission()
	assessment := svc.PreviewScore(ctx, sub.Person, sub.Household)
	assert.Equal(t, models.CategoryLow, assessment.Category)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	events, err := auditStore.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventScorePreviewed), events[0].Action)
}

func TestPreviewScore_CanonicalizesEnumInput(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := testContext()

	sub := validSubmission()
	sub.Household.ZoneType = models.ZoneRuralRemote
	sub.Household.HasElectricity = models.TriNo
	canonical := svc.PreviewScore(ctx, sub.Person, sub.Household)

	variant := validSubmission()
	variant.Household.ZoneType = "rural_remote"
	variant.Household.HasElectricity = "No"
	got := svc.PreviewScore(ctx, variant.Person, variant.Household)

	assert.Equal(t, canonical.Score, got.Score, "case variants must not change the preview")
	assert.Equal(t, canonical.Factors, got.Factors)
}

func TestPendingCount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := testContext()

	_, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)

	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
