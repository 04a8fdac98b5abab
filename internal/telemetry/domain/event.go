package domain

import (
	"encoding/json"
	"time"
)

// Event is one gateway telemetry event (tenant-scoped, optional account/session).
type Event struct {
	TenantID  string          `json:"tenantId"`
	AccountID string          `json:"accountId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
