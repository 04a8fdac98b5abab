package repository

import (
	"context"
	"time"

	"tenant-gateway/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByPublicID(ctx context.Context, publicID string) (*domain.Account, error)
	// GetByEmail returns the account with email in the given tenant, or nil.
	// tenantID "" looks up cross-tenant super admins.
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetEmailVerified(ctx context.Context, id int64, verified bool) error
}
