package telemetry

import (
	"context"
	"encoding/json"

	auditdomain "tenant-gateway/internal/audit/domain"
	"tenant-gateway/internal/telemetry/domain"
)

// AuditSink adapts the audit logger's fan-out to the event emitters: every
// persisted audit entry becomes one telemetry event on each emitter.
type AuditSink struct {
	emitters []EventEmitter
}

// NewAuditSink returns an AuditSink over the given emitters; nils are skipped.
func NewAuditSink(emitters ...EventEmitter) *AuditSink {
	s := &AuditSink{}
	for _, e := range emitters {
		if e != nil {
			s.emitters = append(s.emitters, e)
		}
	}
	return s
}

// Publish converts the audit entry to an event and emits it asynchronously.
func (s *AuditSink) Publish(ctx context.Context, entry *auditdomain.AuditLog) {
	if entry == nil || len(s.emitters) == 0 {
		return
	}
	var metadata json.RawMessage
	if entry.Metadata != "" {
		if b, err := json.Marshal(map[string]string{"detail": entry.Metadata, "ip": entry.IP}); err == nil {
			metadata = b
		}
	}
	event := &domain.Event{
		TenantID:  entry.TenantID,
		AccountID: entry.AccountID,
		EventType: entry.Action,
		Source:    entry.Resource,
		Metadata:  metadata,
		CreatedAt: entry.CreatedAt,
	}
	for _, e := range s.emitters {
		EmitAsync(e, ctx, event)
	}
}
