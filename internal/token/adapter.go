package token

import (
	"enrolld/internal/platform/middleware"
)

// MiddlewareAdapter exposes the token service through the interface the
// auth middleware consumes.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) Validate(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		SurveyorID: claims.SurveyorID,
		DeviceID:   claims.DeviceID,
	}, nil
}
