package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"enrolld/pkg/requestcontext"
)

// TokenValidator validates bearer tokens issued to surveyor devices.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims carries the identity the middleware extracts from a token.
type TokenClaims struct {
	SurveyorID string
	DeviceID   string
}

// RequireAuth rejects requests without a valid bearer token and stores the
// surveyor identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "token validation failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				unauthorized(w)
				return
			}

			ctx := requestcontext.WithSurveyorID(r.Context(), claims.SurveyorID)
			if claims.DeviceID != "" {
				ctx = requestcontext.WithDeviceID(ctx, claims.DeviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
