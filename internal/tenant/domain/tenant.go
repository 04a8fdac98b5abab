package domain

import (
	"errors"
	"time"
)

// Tenant represents an isolated customer/organization boundary. A tenant owns
// a set of request domains; lookups by domain only ever return active tenants.
type Tenant struct {
	ID        int64  // internal numeric id, never exposed outside the gateway
	PublicID  string // stable external identifier (tenant_...)
	Name      string
	Status    TenantStatus
	Settings  map[string]any
	CreatedAt time.Time
}

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// Active reports whether the tenant may serve requests.
func (t *Tenant) Active() bool { return t.Status == TenantStatusActive }

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.PublicID == "" {
		return errors.New("public id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	return nil
}
