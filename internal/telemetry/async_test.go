package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tenant-gateway/internal/telemetry/domain"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
	done   chan struct{}
}

func newRecordingEmitter(expected int) *recordingEmitter {
	return &recordingEmitter{done: make(chan struct{}, expected)}
}

func (e *recordingEmitter) Emit(ctx context.Context, event *domain.Event) error {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
	e.done <- struct{}{}
	return e.err
}

func (e *recordingEmitter) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-e.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for emit %d of %d", i+1, n)
		}
	}
}

func TestEmitAsyncDeliversEvent(t *testing.T) {
	e := newRecordingEmitter(1)
	event := &domain.Event{TenantID: "tenant_abc", EventType: "auth.login", Source: "auth"}

	EmitAsync(e, context.Background(), event)
	e.wait(t, 1)

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) != 1 || e.events[0].EventType != "auth.login" {
		t.Errorf("events = %+v", e.events)
	}
}

func TestEmitAsyncNilSafe(t *testing.T) {
	// Must not panic or spawn goroutines.
	EmitAsync(nil, context.Background(), &domain.Event{})
	e := newRecordingEmitter(1)
	EmitAsync(e, context.Background(), nil)

	select {
	case <-e.done:
		t.Error("nil event must not be emitted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitAsyncSurvivesCancelledRequestContext(t *testing.T) {
	e := newRecordingEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(e, ctx, &domain.Event{EventType: "auth.logout"})
	e.wait(t, 1)
}

func TestEmitAsyncSwallowsEmitterError(t *testing.T) {
	e := newRecordingEmitter(1)
	e.err = errors.New("exporter down")
	EmitAsync(e, context.Background(), &domain.Event{EventType: "auth.login"})
	e.wait(t, 1)
}
