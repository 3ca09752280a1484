package surveyor

import (
	"context"
	"log/slog"

	dErrors "enrolld/pkg/domain-errors"
)

// Seed provisions the bootstrap surveyor account at startup. Without it a
// fresh deployment has no account and no login can succeed. An already
// provisioned username is left alone so restarts are idempotent; with no
// bootstrap configured it only warns.
func Seed(ctx context.Context, svc *Service, username, fullName, password string, logger *slog.Logger) error {
	if username == "" || password == "" {
		logger.Warn("no bootstrap surveyor configured; logins will fail until an account is provisioned")
		return nil
	}
	surveyor, err := svc.Register(ctx, username, fullName, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	logger.Info("provisioned bootstrap surveyor",
		"surveyor_id", surveyor.ID,
		"username", username,
	)
	return nil
}
