package surveyor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/platform/logger"
	"enrolld/internal/token"
	dErrors "enrolld/pkg/domain-errors"
	audit "enrolld/pkg/platform/audit"
	auditmem "enrolld/pkg/platform/audit/store/memory"
)

func newTestService(t *testing.T) (*Service, *auditmem.InMemoryStore) {
	t.Helper()
	auditStore := auditmem.NewInMemoryStore()
	pub := audit.NewPublisher(auditStore)
	t.Cleanup(pub.Close)
	tokens := token.NewService("test-key", "enrolld-test")
	return NewService(NewMemoryStore(), tokens, time.Hour, pub, logger.New()), auditStore
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, auditStore := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "m.ondo", "Marie Ondo", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.True(t, account.Active)
	assert.NotEqual(t, "s3cret-pass", account.PasswordHash)

	signed, got, err := svc.Authenticate(ctx, "m.ondo", "s3cret-pass", "device-1")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.Equal(t, account.ID, got.ID)

	tokens := token.NewService("test-key", "enrolld-test")
	claims, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.SurveyorID)
	assert.Equal(t, "device-1", claims.DeviceID)

	events, err := auditStore.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSurveyorLogin), events[0].Action)
}

func TestSeed_ProvisionsBootstrapAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, svc, "supervisor", "Field Supervisor", "bootstrap-pass", logger.New()))

	signed, account, err := svc.Authenticate(ctx, "supervisor", "bootstrap-pass", "device-1")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.Equal(t, "Field Supervisor", account.FullName)

	// Seeding again on restart is a no-op, not a conflict.
	require.NoError(t, Seed(ctx, svc, "supervisor", "Field Supervisor", "bootstrap-pass", logger.New()))
}

func TestSeed_NoBootstrapConfigured(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, Seed(context.Background(), svc, "", "", "", logger.New()))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "m.ondo", "Marie Ondo", "pass-1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "m.ondo", "Other Person", "pass-2")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc, auditStore := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "m.ondo", "Marie Ondo", "correct-pass")
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "m.ondo", "wrong-pass", "device-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	events, err := auditStore.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAuthFailed), events[0].Action)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Authenticate(context.Background(), "nobody", "whatever", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "m.ondo", "Marie Ondo", "pass")
	require.NoError(t, err)
	account.Active = false
	require.NoError(t, svc.store.Save(ctx, account))

	_, _, err = svc.Authenticate(ctx, "m.ondo", "pass", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
