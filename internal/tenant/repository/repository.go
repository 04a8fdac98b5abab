package repository

import (
	"context"

	"tenant-gateway/internal/tenant/domain"
)

// Repository defines persistence for tenants and their domain set.
type Repository interface {
	// GetActiveByDomain returns the active tenant whose domain set contains
	// reqDomain, or nil if no active tenant is registered for it.
	GetActiveByDomain(ctx context.Context, reqDomain string) (*domain.Tenant, error)
	GetByPublicID(ctx context.Context, publicID string) (*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant, domains []string) error
	SetStatus(ctx context.Context, publicID string, status domain.TenantStatus) error
	UpdateSettings(ctx context.Context, publicID string, settings map[string]any) error
}
