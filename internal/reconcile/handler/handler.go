package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"enrolld/internal/reconcile"
	"enrolld/pkg/platform/httputil"
	"enrolld/pkg/requestcontext"
)

// Service defines the sync operations the handler exposes.
type Service interface {
	SyncAll(ctx context.Context) (reconcile.Summary, error)
}

// Handler wires the sync trigger to the reconciler.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts sync endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sync", h.HandleSync)
}

// HandleSync handles POST /sync requests. Triggering while a pass is
// already running joins that pass rather than starting another.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	summary, err := h.service.SyncAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync pass failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync pass triggered",
		"request_id", requestID,
		"synced", summary.Synced,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, summary)
}
