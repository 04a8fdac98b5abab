package domain

import (
	"errors"
	"time"
)

// Account represents a caller identity. An account belongs to exactly one
// tenant, except super admins whose TenantID is empty and who cross tenants.
type Account struct {
	ID            int64  // internal numeric id
	PublicID      string // stable external identifier (account_...)
	TenantID      string // tenant public id; empty means cross-tenant super admin
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	Role          Role
	PasswordHash  string
	Mobile        string
	LastLoginAt   *time.Time // nil when the account never logged in
	CreatedAt     time.Time
}

type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleSystemAdmin Role = "system_admin"
)

// SuperAdmin reports whether the account is a cross-tenant super admin.
func (a *Account) SuperAdmin() bool { return a.TenantID == "" }

// BelongsTo reports whether the account may act within the given tenant.
// Super admins belong to every tenant.
func (a *Account) BelongsTo(tenantPublicID string) bool {
	return a.SuperAdmin() || a.TenantID == tenantPublicID
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.PublicID == "" {
		return errors.New("public id is required")
	}
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Mobile == "" {
		return errors.New("mobile is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	switch a.Role {
	case RoleUser, RoleAdmin, RoleSystemAdmin:
	case "":
		a.Role = RoleUser
	default:
		return errors.New("unknown role")
	}
	return nil
}
