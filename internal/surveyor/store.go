package surveyor

import "context"

// Store persists surveyor accounts.
type Store interface {
	Save(ctx context.Context, s *Surveyor) error
	FindByUsername(ctx context.Context, username string) (*Surveyor, error)
}
