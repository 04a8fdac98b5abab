package domain

import "time"

// Session represents an authenticated login. The token is opaque and
// high-entropy; it is both the session's identifier and its secret.
// A session must never be considered valid past ExpiresAt, regardless of
// where the record was read from.
type Session struct {
	Token           string
	PublicID        string // stable external identifier (session_...)
	AccountID       int64
	AccountPublicID string
	Device          string
	OS              string
	ExpiresAt       time.Time
	// Fresh signals the session was just extended by the sliding-refresh
	// policy and the caller should reissue its credential soon. Advisory;
	// never persisted.
	Fresh bool
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Caller is the account projection attached to a validated session: just
// enough to authorize the request. Full account reads go through the account
// repository.
type Caller struct {
	AccountID       int64
	AccountPublicID string
	TenantID        string // tenant public id; empty means cross-tenant super admin
	Role            string
}

// SessionWithCaller pairs a session with its owning account's projection.
type SessionWithCaller struct {
	Session Session
	Caller  Caller
}
