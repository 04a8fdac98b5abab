package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenant-gateway/internal/account/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, public_id, tenant_id, first_name, last_name, email,
	email_verified, role, password_hash, mobile, last_login_at, created_at`

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByPublicID returns the account for publicID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE public_id = $1`, publicID)
	return scanAccount(row)
}

// GetByEmail returns the account with email inside the given tenant, or nil if
// not found. tenantID "" matches cross-tenant super admins (NULL tenant_id).
func (r *PostgresRepository) GetByEmail(ctx context.Context, tenantID, email string) (*domain.Account, error) {
	var row *sql.Row
	if tenantID == "" {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+accountColumns+` FROM accounts
			WHERE email = $1 AND tenant_id IS NULL`, email)
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+accountColumns+` FROM accounts
			WHERE email = $1 AND tenant_id = $2`, email, tenantID)
	}
	return scanAccount(row)
}

// Create persists the account to the database. The account must have PublicID
// set; its internal ID is filled in on return.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	tid := sql.NullString{String: a.TenantID, Valid: a.TenantID != ""}
	ln := sql.NullString{String: a.LastName, Valid: a.LastName != ""}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (public_id, tenant_id, first_name, last_name, email,
			email_verified, role, password_hash, mobile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		a.PublicID, tid, a.FirstName, ln, a.Email,
		a.EmailVerified, a.Role, a.PasswordHash, a.Mobile,
	).Scan(&a.ID, &a.CreatedAt)
}

// UpdateLastLogin sets the account's last-login timestamp. Returns an error if the update fails.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET last_login_at = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

// SetEmailVerified marks the account's email verification state. Returns an error if the update fails.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id int64, verified bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET email_verified = $2, updated_at = now() WHERE id = $1`, id, verified)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var tid, ln sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.PublicID, &tid, &a.FirstName, &ln, &a.Email,
		&a.EmailVerified, &a.Role, &a.PasswordHash, &a.Mobile, &lastLogin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.TenantID = tid.String
	a.LastName = ln.String
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}
