package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenant-gateway/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session row keyed by its token. The session must have
// Token and PublicID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (public_id, account_id, account_public_id, session_token, device, os, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.PublicID, s.AccountID, s.AccountPublicID, s.Token, s.Device, s.OS, s.ExpiresAt)
	return err
}

// GetWithCaller returns the session for token joined with its owning
// account's projection, or nil if no row matches.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetWithCaller(ctx context.Context, token string) (*domain.SessionWithCaller, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.session_token, s.public_id, s.account_id, s.account_public_id,
		       s.device, s.os, s.expires_at,
		       a.tenant_id, a.role
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.session_token = $1`, token)

	var rec domain.SessionWithCaller
	var tenantID sql.NullString
	err := row.Scan(&rec.Session.Token, &rec.Session.PublicID, &rec.Session.AccountID,
		&rec.Session.AccountPublicID, &rec.Session.Device, &rec.Session.OS,
		&rec.Session.ExpiresAt, &tenantID, &rec.Caller.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Caller.AccountID = rec.Session.AccountID
	rec.Caller.AccountPublicID = rec.Session.AccountPublicID
	rec.Caller.TenantID = tenantID.String
	return &rec, nil
}

// UpdateExpiry sets the session's expiry. Durable update only; callers decide
// what to do with the cached copy.
func (r *PostgresRepository) UpdateExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET expires_at = $2 WHERE session_token = $1`, token, expiresAt)
	return err
}

// DeleteByToken removes the session row. Deleting an absent token is a no-op.
func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	return err
}

// ListTokensByAccount returns every session token owned by the account.
func (r *PostgresRepository) ListTokensByAccount(ctx context.Context, accountID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_token FROM sessions WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteByTokens removes the given session rows in one statement.
func (r *PostgresRepository) DeleteByTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	// The pgx driver encodes []string as a text[] parameter.
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE session_token = ANY($1)`, tokens)
	return err
}

// DeleteExpired removes all sessions whose expiry has passed and returns the
// number of rows deleted. Running it twice back-to-back deletes nothing new.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
