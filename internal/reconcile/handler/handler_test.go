package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/platform/logger"
	"enrolld/internal/reconcile"
	dErrors "enrolld/pkg/domain-errors"
)

type stubService struct {
	summary reconcile.Summary
	err     error
	calls   int
}

func (s *stubService) SyncAll(context.Context) (reconcile.Summary, error) {
	s.calls++
	return s.summary, s.err
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, logger.New()).Register(r)
	return r
}

func TestHandleSync(t *testing.T) {
	svc := &stubService{summary: reconcile.Summary{Synced: 2, Failed: 1, Skipped: 3}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got reconcile.Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, svc.summary, got)
	assert.Equal(t, 1, svc.calls)
}

func TestHandleSync_ServiceError(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeUnavailable, "authority unreachable")}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleSync_OpaqueError(t *testing.T) {
	svc := &stubService{err: errors.New("boom")}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
