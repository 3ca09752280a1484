package audit

import (
	"time"
)

// Event is emitted from domain logic to capture key field operations. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	SurveyorID string    `json:"surveyor_id,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Enrollment events
	EventEnrollmentSaved AuditEvent = "enrollment_saved"
	EventScorePreviewed  AuditEvent = "score_previewed"

	// Sync events
	EventSyncStarted    AuditEvent = "sync_started"
	EventSyncCompleted  AuditEvent = "sync_completed"
	EventRecordSynced   AuditEvent = "record_synced"
	EventRecordRejected AuditEvent = "record_rejected"

	// Auth events
	EventSurveyorLogin AuditEvent = "surveyor_login"
	EventAuthFailed    AuditEvent = "auth_failed"
)
