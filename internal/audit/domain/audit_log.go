package domain

import "time"

// AuditLog represents one recorded gateway event.
type AuditLog struct {
	ID        string
	TenantID  string
	AccountID string // account public id, empty for anonymous events
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
