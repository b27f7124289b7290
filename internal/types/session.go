// Package types provides type definitions for structured data used throughout the reaction-reach system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// TrustLevel classifies the current usability of a browsing session.
type TrustLevel string

const (
	// TrustUnauthenticated means the session has no valid login state.
	TrustUnauthenticated TrustLevel = "unauthenticated"
	// TrustAuthenticated means the session passed its last validation probe.
	TrustAuthenticated TrustLevel = "authenticated"
	// TrustFlagged means the session surfaced a detection signal and must be retired.
	TrustFlagged TrustLevel = "flagged"
)

// Session is a persisted authenticated browsing identity, reusable across runs.
// It is owned by the session store and borrowed by the navigator for the
// duration of a single run. The pipeline never deletes a session; rotation is
// the caller's decision.
type Session struct {
	ContextID       string     `json:"context_id"`
	TrustLevel      TrustLevel `json:"trust_level"`
	LastValidatedAt time.Time  `json:"last_validated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Usable reports whether the session can drive a run without re-validation.
// A session is usable only when authenticated and validated within maxAge.
func (s *Session) Usable(maxAge time.Duration, now time.Time) bool {
	if s == nil || s.TrustLevel != TrustAuthenticated {
		return false
	}
	if s.LastValidatedAt.IsZero() {
		return false
	}
	return now.Sub(s.LastValidatedAt) <= maxAge
}
