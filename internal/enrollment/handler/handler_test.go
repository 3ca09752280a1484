package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/enrollment/service"
	"enrolld/internal/enrollment/store/memory"
	"enrolld/internal/platform/logger"
	audit "enrolld/pkg/platform/audit"
	auditmem "enrolld/pkg/platform/audit/store/memory"
)

func newEnrollmentRouter(t *testing.T) chi.Router {
	t.Helper()
	pub := audit.NewPublisher(auditmem.NewInMemoryStore())
	t.Cleanup(pub.Close)
	svc := service.NewService(memory.New(), pub, nil, logger.New())

	router := chi.NewRouter()
	New(svc, logger.New(), 5).Register(router)
	return router
}

func validBody() map[string]any {
	return map[string]any{
		"person": map[string]any{
			"first_name": "Marie",
			"last_name":  "Ondo",
			"birth_date": "1990-04-12",
			"gender":     "FEMALE",
			"phone":      "01234567",
			"province":   "ESTUAIRE",
		},
		"household": map[string]any{
			"size":      4,
			"zone_type": "URBAN_CENTER",
		},
	}
}

func doJSON(t *testing.T, router chi.Router, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEnrollment(t *testing.T) {
	router := newEnrollmentRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/enrollments", validBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp EnrollmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ClientID)
	assert.Equal(t, "PENDING", resp.SyncStatus)
	assert.Equal(t, "LOW", resp.Assessment.Category)
	assert.NotEmpty(t, resp.Assessment.Factors)
}

func TestSubmitEnrollment_FieldErrors(t *testing.T) {
	router := newEnrollmentRouter(t)

	body := validBody()
	person := body["person"].(map[string]any)
	person["first_name"] = ""
	person["phone"] = "12345"
	person["birth_date"] = "2999-01-01"

	rec := doJSON(t, router, http.MethodPost, "/enrollments", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, "missing", resp.Fields["first_name"])
	assert.Equal(t, "invalid_format", resp.Fields["phone"])
	assert.Equal(t, "future_date", resp.Fields["birth_date"])
}

func TestSubmitEnrollment_BadJSON(t *testing.T) {
	router := newEnrollmentRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitEnrollment_EmptyPerson(t *testing.T) {
	router := newEnrollmentRouter(t)

	body := validBody()
	delete(body, "person")

	rec := doJSON(t, router, http.MethodPost, "/enrollments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewScore(t *testing.T) {
	router := newEnrollmentRouter(t)

	body := map[string]any{
		"person": map[string]any{
			"birth_date":      "1940-01-01",
			"education_level": "NONE",
		},
		"household": map[string]any{
			"size":            9,
			"zone_type":       "RURAL_REMOTE",
			"has_electricity": "no",
			"has_water":       "no",
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/enrollments/preview-score", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AssessmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "EXTREME", resp.Category)
	assert.GreaterOrEqual(t, resp.Score, 70)
}

func TestPendingListAndCount(t *testing.T) {
	router := newEnrollmentRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/enrollments", validBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/enrollments/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list PendingListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Marie Ondo", list.Records[0].FullName)
	assert.Equal(t, "PENDING", list.Records[0].SyncStatus)

	rec = doJSON(t, router, http.MethodGet, "/enrollments/pending/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count PendingCountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)
}
