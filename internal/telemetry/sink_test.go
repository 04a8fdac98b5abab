package telemetry

import (
	"context"
	"testing"
	"time"

	auditdomain "tenant-gateway/internal/audit/domain"
)

func TestAuditSinkPublishesToAllEmitters(t *testing.T) {
	a := newRecordingEmitter(1)
	b := newRecordingEmitter(1)
	sink := NewAuditSink(a, nil, b)

	entry := &auditdomain.AuditLog{
		ID:        "evt_1",
		TenantID:  "tenant_abc",
		AccountID: "account_1",
		Action:    "auth.login",
		Resource:  "auth",
		IP:        "1.2.3.4",
		Metadata:  "ada@example.com",
		CreatedAt: time.Now().UTC(),
	}
	sink.Publish(context.Background(), entry)
	a.wait(t, 1)
	b.wait(t, 1)

	a.mu.Lock()
	defer a.mu.Unlock()
	got := a.events[0]
	if got.TenantID != "tenant_abc" || got.EventType != "auth.login" || got.Source != "auth" {
		t.Errorf("event = %+v", got)
	}
	if len(got.Metadata) == 0 {
		t.Error("metadata should carry the audit detail")
	}
}

func TestAuditSinkNilEntry(t *testing.T) {
	sink := NewAuditSink(newRecordingEmitter(1))
	sink.Publish(context.Background(), nil) // must not panic
}
