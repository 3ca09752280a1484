package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"enrolld/internal/enrollment/models"
	"enrolld/pkg/platform/sentinel"
)

const pushRetries = 2

// HTTPAuthority talks to the registry authority's ingest API. Each push
// carries the record's client ID as an idempotency key, so the transport
// retrying a request the server already applied is harmless.
type HTTPAuthority struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPAuthority(baseURL, apiKey string, timeout time.Duration) *HTTPAuthority {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAuthority{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	ClientID  string                  `json:"client_id"`
	Person    models.PersonRecord     `json:"person"`
	Household models.HouseholdRecord  `json:"household"`
	Location  *models.Geolocation     `json:"location,omitempty"`
	Score     int                     `json:"local_score"`
	CreatedAt time.Time               `json:"created_at"`
}

type pushResponse struct {
	ServerID    string `json:"server_id"`
	ServerScore int    `json:"server_score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Push submits one record. 4xx responses become a RejectionError; 5xx and
// transport errors are retried briefly and then surface as unavailable.
func (a *HTTPAuthority) Push(ctx context.Context, record *models.EnrollmentRecord) (Receipt, error) {
	payload, err := json.Marshal(pushRequest{
		ClientID:  record.ClientID,
		Person:    record.Person,
		Household: record.Household,
		Location:  record.Location,
		Score:     record.LocalScore.Score,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal push request: %w", err)
	}

	var receipt Receipt
	operation := func() error {
		var opErr error
		receipt, opErr = a.pushOnce(ctx, record.ClientID, payload)
		return opErr
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pushRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

func (a *HTTPAuthority) pushOnce(ctx context.Context, clientID string, payload []byte) (Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/enrollments", bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, backoff.Permanent(fmt.Errorf("build push request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", clientID)
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: push enrollment: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: read push response: %v", sentinel.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out pushResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return Receipt{}, backoff.Permanent(fmt.Errorf("decode push response: %w", err))
		}
		return Receipt{ServerID: out.ServerID, ServerScore: out.ServerScore}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var out errorResponse
		reason := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(body, &out); err == nil && out.Error != "" {
			reason = out.Error
		}
		return Receipt{}, backoff.Permanent(&RejectionError{Status: resp.StatusCode, Reason: reason})
	default:
		return Receipt{}, fmt.Errorf("%w: authority returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}
}

// Online probes the authority's health endpoint with a short deadline.
func (a *HTTPAuthority) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
