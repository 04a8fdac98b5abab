package session

import (
	"context"
	"errors"
	"time"

	"tenant-gateway/internal/session/domain"
)

// ErrSessionInvalid is returned when a token is absent, unknown, or expired.
// Callers treat the request as anonymous unless the route requires auth.
var ErrSessionInvalid = errors.New("session invalid or expired")

// Validator applies the per-use session checks on top of the Store: expiry is
// verified against the clock on every call (never cache-trusted), and a
// session past half its lifetime is extended and flagged fresh.
type Validator struct {
	store    *Store
	lifetime time.Duration
	nowF     func() time.Time
}

// NewValidator returns a Validator over store with the given full session lifetime.
func NewValidator(store *Store, lifetime time.Duration) *Validator {
	return &Validator{store: store, lifetime: lifetime, nowF: time.Now}
}

// Validate looks up token and enforces expiry. Expired sessions are deleted
// eagerly and reported as ErrSessionInvalid. When less than half the lifetime
// remains the expiry is slid forward to a full lifetime and the session is
// marked Fresh so the caller knows to reissue its credential.
func (v *Validator) Validate(ctx context.Context, token string) (*domain.SessionWithCaller, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	rec, err := v.store.GetSessionWithAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionInvalid
	}

	now := v.nowF()
	if rec.Session.Expired(now) {
		if err := v.store.DeleteSession(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrSessionInvalid
	}

	if now.Add(v.lifetime / 2).After(rec.Session.ExpiresAt) {
		if err := v.store.RefreshSessionExpiry(ctx, rec, now.Add(v.lifetime)); err != nil {
			return nil, err
		}
		rec.Session.Fresh = true
	}
	return rec, nil
}
