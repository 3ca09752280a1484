package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/enrollment/service"
	"enrolld/internal/enrollment/store/memory"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/logger"
	"enrolld/internal/reconcile"
	"enrolld/internal/surveyor"
	"enrolld/internal/token"
	audit "enrolld/pkg/platform/audit"
	auditmem "enrolld/pkg/platform/audit/store/memory"
	"enrolld/pkg/testutil"
)

// newTestServer assembles the full router against in-memory backends and a
// stubbed registry authority, mirroring the production wiring in main.
func newTestServer(t *testing.T) chi.Router {
	t.Helper()

	authorityServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			return
		}
		var body struct {
			ClientID string `json:"client_id"`
			Score    int    `json:"local_score"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"server_id":    "SR-" + body.ClientID,
			"server_score": body.Score,
		})
	}))
	t.Cleanup(authorityServer.Close)

	cfg := config.Config{
		Addr:          ":0",
		AuthorityURL:  authorityServer.URL,
		JWTSigningKey: "e2e-test-key",
		TokenTTL:      time.Hour,
	}
	log := logger.New()

	pub := audit.NewPublisher(auditmem.NewInMemoryStore())
	t.Cleanup(pub.Close)

	tokens := token.NewService(cfg.JWTSigningKey, "enrolld")
	surveyorService := surveyor.NewService(surveyor.NewMemoryStore(), tokens, cfg.TokenTTL, pub, log)
	_, err := surveyorService.Register(context.Background(), "m.ondo", "Marie Ondo", "s3cret-pass")
	require.NoError(t, err)

	recordStore := memory.New()
	enrollService := service.NewService(recordStore, pub, nil, log)

	authority := reconcile.NewHTTPAuthority(cfg.AuthorityURL, cfg.AuthorityAPIKey, cfg.AuthorityTimeout)
	reconciler := reconcile.New(recordStore, authority, authority, reconcile.RetryPolicy{}, nil, pub, log)

	return buildRouter(cfg, log, nil, tokens, enrollService, reconciler, surveyorService)
}

func TestEnrollmentLifecycle(t *testing.T) {
	router := newTestServer(t)
	var bearer string

	testutil.Given(t, "an authenticated surveyor device", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"username":  "m.ondo",
			"password":  "s3cret-pass",
			"device_id": "device-1",
		})
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.NotEmpty(t, resp.Token)
		bearer = "Bearer " + resp.Token
	})

	var clientID string
	testutil.When(t, "the surveyor enrolls a household", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/enrollments", map[string]any{
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
		})
		req.Header.Set("Authorization", bearer)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			ClientID string `json:"client_id"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		clientID = resp.ClientID

		req = testutil.NewRequest(t, http.MethodGet, "/enrollments/pending/count")
		req.Header.Set("Authorization", bearer)
		rr = testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"count":1}`, rr.Body.String())
	})

	testutil.Then(t, "triggering a sync drains the queue", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/sync")
		req.Header.Set("Authorization", bearer)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var summary reconcile.Summary
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
		assert.Equal(t, reconcile.Summary{Synced: 1}, summary)
		require.NotEmpty(t, clientID)

		req = testutil.NewRequest(t, http.MethodGet, "/enrollments/pending/count")
		req.Header.Set("Authorization", bearer)
		rr = testutil.DoRequest(router, req)
		assert.JSONEq(t, `{"count":0}`, rr.Body.String())
	})
}

func TestAuthRequired(t *testing.T) {
	router := newTestServer(t)

	req := testutil.NewRequest(t, http.MethodGet, "/enrollments/pending")
	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = testutil.NewRequest(t, http.MethodPost, "/sync")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	router := newTestServer(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	assert.Equal(t, http.StatusOK, rr.Code)
}
