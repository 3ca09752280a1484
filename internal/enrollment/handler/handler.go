package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/service"
	"enrolld/internal/enrollment/workflow"
	"enrolld/pkg/platform/httputil"
	"enrolld/pkg/requestcontext"
)

// Service defines the enrollment operations the handler exposes.
type Service interface {
	PreviewScore(ctx context.Context, person models.PersonRecord, household models.HouseholdRecord) models.Assessment
	Submit(ctx context.Context, sub service.Submission) (*models.EnrollmentRecord, error)
	PendingList(ctx context.Context) ([]*models.EnrollmentRecord, error)
	PendingCount(ctx context.Context) (int, error)
}

// Handler wires enrollment endpoints to the enrollment service.
type Handler struct {
	service Service
	logger  *slog.Logger
	// maxAttempts marks records for review in the pending list once their
	// attempt count reaches it; zero disables the flag.
	maxAttempts int
}

func New(service Service, logger *slog.Logger, maxAttempts int) *Handler {
	return &Handler{service: service, logger: logger, maxAttempts: maxAttempts}
}

// Register mounts enrollment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollments", h.HandleSubmit)
	r.Post("/enrollments/preview-score", h.HandlePreviewScore)
	r.Get("/enrollments/pending", h.HandlePendingList)
	r.Get("/enrollments/pending/count", h.HandlePendingCount)
}

// HandleSubmit handles POST /enrollments requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EnrollmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, service.Submission{
		Person:    req.Person,
		Household: req.Household,
		Location:  req.Location,
	})
	if err != nil {
		var fieldErrs workflow.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeFieldErrors(w, fieldErrs)
			return
		}
		h.logger.ErrorContext(ctx, "enrollment submit failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "enrollment submitted",
		"request_id", requestID,
		"client_id", record.ClientID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, EnrollmentResponse{
		ClientID:   record.ClientID,
		SyncStatus: string(record.SyncStatus),
		Assessment: fromAssessment(record.LocalScore),
		CreatedAt:  record.CreatedAt,
	})
}

// HandlePreviewScore handles POST /enrollments/preview-score requests. The
// preview never persists anything, so partially filled forms are fine here.
func (h *Handler) HandlePreviewScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PreviewScoreRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment := h.service.PreviewScore(ctx, req.Person, req.Household)
	httputil.WriteJSON(w, http.StatusOK, fromAssessment(assessment))
}

// HandlePendingList handles GET /enrollments/pending requests.
func (h *Handler) HandlePendingList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.PendingList(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := PendingListResponse{Records: make([]PendingRecordResponse, len(records))}
	for i, rec := range records {
		out.Records[i] = fromRecord(rec, h.maxAttempts)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandlePendingCount handles GET /enrollments/pending/count requests.
func (h *Handler) HandlePendingCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.PendingCount(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending count failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PendingCountResponse{Count: count})
}

// writeFieldErrors renders workflow validation failures as one response
// keyed by field, so the capture UI can mark every bad input at once.
func writeFieldErrors(w http.ResponseWriter, errs workflow.FieldErrors) {
	fields := make(map[string]string, len(errs))
	for field, reason := range errs.ByField() {
		fields[field] = string(reason)
	}
	httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation_failed",
		"fields": fields,
	})
}
