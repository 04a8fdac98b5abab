package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tenant-gateway/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `t.id, t.public_id, t.name, t.status, t.settings, t.created_at`

// GetActiveByDomain returns the active tenant registered for reqDomain, or nil
// if no active tenant owns it. Inactive tenants are filtered in the query so a
// deactivated tenant reads as not-found, never as a stale hit.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetActiveByDomain(ctx context.Context, reqDomain string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants t
		JOIN tenant_domains d ON d.tenant_id = t.public_id
		WHERE d.domain = $1 AND t.status = $2
		LIMIT 1`, reqDomain, domain.TenantStatusActive)
	return scanTenant(row)
}

// GetByPublicID returns the tenant for publicID regardless of status, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants t
		WHERE t.public_id = $1`, publicID)
	return scanTenant(row)
}

// Create persists the tenant and registers its domain set in one transaction.
// The tenant must have PublicID set; its internal ID is filled in on return.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant, domains []string) error {
	if err := t.Validate(); err != nil {
		return err
	}
	settings, err := marshalSettings(t.Settings)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tenants (public_id, name, status, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.PublicID, t.Name, t.Status, settings,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return err
	}

	for _, d := range domains {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tenant_domains (tenant_id, domain) VALUES ($1, $2)`,
			t.PublicID, d); err != nil {
			return fmt.Errorf("register domain %q: %w", d, err)
		}
	}
	return tx.Commit()
}

// SetStatus updates the tenant's status (activation/deactivation). Returns an error if the update fails.
func (r *PostgresRepository) SetStatus(ctx context.Context, publicID string, status domain.TenantStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET status = $2, updated_at = now() WHERE public_id = $1`,
		publicID, status)
	return err
}

// UpdateSettings replaces the tenant's settings bag. Returns an error if the update fails.
func (r *PostgresRepository) UpdateSettings(ctx context.Context, publicID string, settings map[string]any) error {
	b, err := marshalSettings(settings)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE tenants SET settings = $2, updated_at = now() WHERE public_id = $1`,
		publicID, b)
	return err
}

func marshalSettings(settings map[string]any) ([]byte, error) {
	if settings == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(settings)
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var settings []byte
	err := row.Scan(&t.ID, &t.PublicID, &t.Name, &t.Status, &settings, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return &t, nil
}
