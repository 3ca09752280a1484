// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http. Tests inject values directly, most importantly a fixed
// evaluation time via WithTime so date-dependent logic stays deterministic.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	surveyorIDKey  struct{}
	deviceIDKey    struct{}
	requestTimeKey struct{}
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithSurveyorID stores the authenticated surveyor identifier.
func WithSurveyorID(ctx context.Context, surveyorID string) context.Context {
	return context.WithValue(ctx, surveyorIDKey{}, surveyorID)
}

// SurveyorID returns the authenticated surveyor identifier, or "" when the
// request is unauthenticated.
func SurveyorID(ctx context.Context) string {
	if v, ok := ctx.Value(surveyorIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID stores the capturing device identifier.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// DeviceID returns the capturing device identifier, or "" when unset.
func DeviceID(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins the evaluation instant for the request. Age derivation and
// retry-eligibility checks read it instead of calling time.Now directly.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}
