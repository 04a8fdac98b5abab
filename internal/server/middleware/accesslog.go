package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/telemetry"
	telemetrydomain "tenant-gateway/internal/telemetry/domain"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// AccessLog logs each request's outcome and emits it as a telemetry event.
// emitter may be nil; then only the operational log line is written.
func AccessLog(emitter telemetry.EventEmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(withCarrier(r.Context()))
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			tenantID := ""
			accountID := ""
			sessionID := ""
			if c := carrierFrom(r.Context()); c != nil {
				if c.tenant != nil {
					tenantID = c.tenant.PublicID
				}
				if c.session != nil {
					accountID = c.session.Caller.AccountPublicID
					sessionID = c.session.Session.PublicID
				}
			}

			log.Printf("%s %s %d %s tenant=%s request_id=%s",
				r.Method, r.URL.Path, status, elapsed.Round(time.Millisecond),
				tenantID, httpx.RequestIDFrom(r.Context()))

			metadata, _ := json.Marshal(map[string]string{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      fmt.Sprintf("%d", status),
				"duration_ms": fmt.Sprintf("%d", elapsed.Milliseconds()),
				"ip":          ClientIPFrom(r.Context()),
			})
			telemetry.EmitAsync(emitter, r.Context(), &telemetrydomain.Event{
				TenantID:  tenantID,
				AccountID: accountID,
				SessionID: sessionID,
				RequestID: httpx.RequestIDFrom(r.Context()),
				EventType: "http.request",
				Source:    "gateway",
				Metadata:  metadata,
				CreatedAt: time.Now().UTC(),
			})
		})
	}
}
