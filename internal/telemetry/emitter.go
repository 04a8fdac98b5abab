// Package telemetry fans gateway events out to observability backends: OTel
// log records and, optionally, a Kafka topic consumed by cmd/worker.
package telemetry

import (
	"context"

	"tenant-gateway/internal/telemetry/domain"
)

// EventEmitter emits gateway events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}
