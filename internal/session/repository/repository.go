package repository

import (
	"context"
	"time"

	"tenant-gateway/internal/session/domain"
)

// Repository defines durable persistence for sessions. The durable store is
// authoritative; the cache layer above it is best-effort.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetWithCaller returns the session joined with its account projection,
	// or nil if no row matches the token.
	GetWithCaller(ctx context.Context, token string) (*domain.SessionWithCaller, error)
	UpdateExpiry(ctx context.Context, token string, expiresAt time.Time) error
	// DeleteByToken removes the session row. Idempotent.
	DeleteByToken(ctx context.Context, token string) error
	// ListTokensByAccount returns all session tokens owned by the account.
	ListTokensByAccount(ctx context.Context, accountID int64) ([]string, error)
	// DeleteByTokens removes the given session rows in one statement.
	DeleteByTokens(ctx context.Context, tokens []string) error
	// DeleteExpired removes all sessions with expires_at <= now and returns
	// how many rows were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
