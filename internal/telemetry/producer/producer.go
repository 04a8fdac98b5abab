// Package producer emits gateway events to Kafka for the worker pipeline.
package producer

import (
	"context"

	"tenant-gateway/internal/telemetry/domain"
)

// Producer emits gateway events. Callers use it best-effort: log and ignore
// errors.
type Producer interface {
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
