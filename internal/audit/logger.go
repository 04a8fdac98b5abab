// Package audit records gateway events (logins, logouts, rate-limit hits)
// durably, with an optional fan-out to the telemetry pipeline.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tenant-gateway/internal/audit/domain"
	auditrepo "tenant-gateway/internal/audit/repository"
)

// SentinelTenantID is recorded for events that happen outside any tenant
// (e.g. a login attempt on an unresolvable host).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP for the current request context.
type IPExtractor func(context.Context) string

// Sink receives a copy of every recorded event, after it is persisted.
// Implementations must be non-blocking best-effort (e.g. a Kafka producer).
type Sink interface {
	Publish(ctx context.Context, entry *domain.AuditLog)
}

// Logger persists audit events and fans them out to an optional sink.
// Recording is best-effort: failures are logged and never returned, so an
// audit outage cannot take down the request path.
type Logger struct {
	repo        auditrepo.Repository
	sink        Sink
	ipExtractor IPExtractor
}

// NewLogger returns a Logger over repo. sink and ipExtractor may be nil; a
// missing extractor records the IP as "unknown".
func NewLogger(repo auditrepo.Repository, sink Sink, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, sink: sink, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry with explicit action and resource.
func (l *Logger) LogEvent(ctx context.Context, tenantID, accountID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		AccountID: accountID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
		return
	}
	if l.sink != nil {
		l.sink.Publish(ctx, entry)
	}
}

// Record satisfies the auth service's recorder with resource "auth".
func (l *Logger) Record(ctx context.Context, tenantID, accountPublicID, action, detail string) {
	l.LogEvent(ctx, tenantID, accountPublicID, action, "auth", detail)
}
