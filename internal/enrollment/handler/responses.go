package handler

import (
	"time"

	"enrolld/internal/enrollment/models"
)

// AssessmentResponse is the scored preview returned to the capture UI.
type AssessmentResponse struct {
	Score    int              `json:"score"`
	Category string           `json:"category"`
	Factors  []FactorResponse `json:"factors"`
}

// FactorResponse is one contributing rule in an assessment.
type FactorResponse struct {
	Dimension string `json:"dimension"`
	Label     string `json:"label"`
	Points    int    `json:"points"`
}

func fromAssessment(a models.Assessment) AssessmentResponse {
	factors := make([]FactorResponse, len(a.Factors))
	for i, f := range a.Factors {
		factors[i] = FactorResponse{
			Dimension: string(f.Dimension),
			Label:     f.Label,
			Points:    f.Points,
		}
	}
	return AssessmentResponse{
		Score:    a.Score,
		Category: string(a.Category),
		Factors:  factors,
	}
}

// EnrollmentResponse is the HTTP response for POST /enrollments.
type EnrollmentResponse struct {
	ClientID   string             `json:"client_id"`
	SyncStatus string             `json:"sync_status"`
	Assessment AssessmentResponse `json:"assessment"`
	CreatedAt  time.Time          `json:"created_at"`
}

// PendingRecordResponse summarizes one queued record for the pending list.
type PendingRecordResponse struct {
	ClientID      string     `json:"client_id"`
	FullName      string     `json:"full_name"`
	SyncStatus    string     `json:"sync_status"`
	LocalScore    int        `json:"local_score"`
	Category      string     `json:"category"`
	Attempts      int        `json:"attempts"`
	FailureReason string     `json:"failure_reason,omitempty"`
	NeedsReview   bool       `json:"needs_review"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	ServerID      string     `json:"server_id,omitempty"`
	ServerScore   *int       `json:"server_score,omitempty"`
}

func fromRecord(rec *models.EnrollmentRecord, maxAttempts int) PendingRecordResponse {
	out := PendingRecordResponse{
		ClientID:      rec.ClientID,
		FullName:      rec.Person.FirstName + " " + rec.Person.LastName,
		SyncStatus:    string(rec.SyncStatus),
		LocalScore:    rec.LocalScore.Score,
		Category:      string(rec.LocalScore.Category),
		Attempts:      rec.Attempts,
		FailureReason: rec.FailureReason,
		NeedsReview:   rec.FailurePermanent || (maxAttempts > 0 && rec.Attempts >= maxAttempts),
		CreatedAt:     rec.CreatedAt,
		ServerID:      rec.ServerID,
		ServerScore:   rec.ServerScore,
	}
	if !rec.LastAttemptAt.IsZero() {
		at := rec.LastAttemptAt
		out.LastAttemptAt = &at
	}
	return out
}

// PendingListResponse is the HTTP response for GET /enrollments/pending.
type PendingListResponse struct {
	Records []PendingRecordResponse `json:"records"`
}

// PendingCountResponse is the HTTP response for GET /enrollments/pending/count.
type PendingCountResponse struct {
	Count int `json:"count"`
}
