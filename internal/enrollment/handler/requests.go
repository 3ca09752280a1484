package handler

import (
	"enrolld/internal/enrollment/models"
	dErrors "enrolld/pkg/domain-errors"
)

// EnrollmentRequest is the HTTP request body for POST /enrollments. Field
// formats are checked by the enrollment workflow so every problem comes
// back in one response; Validate only rejects structurally empty bodies.
type EnrollmentRequest struct {
	Person    models.PersonRecord    `json:"person"`
	Household models.HouseholdRecord `json:"household"`
	Location  *models.Geolocation    `json:"location,omitempty"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EnrollmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Person == (models.PersonRecord{}) {
		return dErrors.New(dErrors.CodeValidation, "person is required")
	}
	if r.Household == (models.HouseholdRecord{}) {
		return dErrors.New(dErrors.CodeValidation, "household is required")
	}
	return nil
}

// PreviewScoreRequest is the HTTP request body for POST /enrollments/preview-score.
type PreviewScoreRequest struct {
	Person    models.PersonRecord    `json:"person"`
	Household models.HouseholdRecord `json:"household"`
}
