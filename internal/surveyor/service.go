package surveyor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"enrolld/internal/token"
	dErrors "enrolld/pkg/domain-errors"
	audit "enrolld/pkg/platform/audit"
	"enrolld/pkg/platform/sentinel"
	"enrolld/pkg/requestcontext"
)

// Auditor records auth events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service handles surveyor provisioning and device login.
type Service struct {
	store    Store
	tokens   *token.Service
	tokenTTL time.Duration
	auditor  Auditor
	logger   *slog.Logger
}

func NewService(store Store, tokens *token.Service, tokenTTL time.Duration, auditor Auditor, logger *slog.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		auditor:  auditor,
		logger:   logger,
	}
}

// Register provisions a surveyor account with a hashed password.
func (s *Service) Register(ctx context.Context, username, fullName, password string) (*Surveyor, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if existing, err := s.store.FindByUsername(ctx, username); err == nil && existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	surveyor := &Surveyor{
		ID:           uuid.NewString(),
		Username:     username,
		FullName:     fullName,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, surveyor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save surveyor")
	}
	return surveyor, nil
}

// Authenticate verifies credentials and issues a device token. Failures are
// deliberately indistinguishable between unknown user and wrong password.
func (s *Service) Authenticate(ctx context.Context, username, password, deviceID string) (string, *Surveyor, error) {
	surveyor, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.auditFailure(ctx, username, "unknown username")
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up surveyor")
	}
	if !surveyor.Active {
		s.auditFailure(ctx, username, "account deactivated")
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := VerifyPassword(password, surveyor.PasswordHash); err != nil {
		s.auditFailure(ctx, username, "wrong password")
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	signed, err := s.tokens.IssueToken(surveyor.ID, deviceID, s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:     string(audit.EventSurveyorLogin),
		SurveyorID: surveyor.ID,
		DeviceID:   deviceID,
	})
	s.logger.InfoContext(ctx, "surveyor authenticated",
		"surveyor_id", surveyor.ID,
		"device_id", deviceID,
	)
	return signed, surveyor, nil
}

func (s *Service) auditFailure(ctx context.Context, username, reason string) {
	_ = s.auditor.Emit(ctx, audit.Event{
		Action: string(audit.EventAuthFailed),
		Detail: reason,
	})
	s.logger.WarnContext(ctx, "authentication failed",
		"username", username,
		"reason", reason,
	)
}
