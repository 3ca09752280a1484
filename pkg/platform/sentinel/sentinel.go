package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the remote-authority
// client return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: write conflicts with existing state
// - ErrInvalidState: record in wrong status for the requested transition
// - ErrUnavailable: backend or remote authority temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
