// Package health serves readiness and liveness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"tenant-gateway/internal/httpx"
)

// Pinger checks the durable store (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CacheChecker checks the cache backend round trip.
type CacheChecker func(ctx context.Context) error

// Handler answers health probes. Liveness always succeeds; readiness pings
// the durable store and the cache. Either checker may be nil and is skipped.
type Handler struct {
	db    Pinger
	cache CacheChecker
}

// NewHandler returns a Handler with the given checks.
func NewHandler(db Pinger, cache CacheChecker) *Handler {
	return &Handler{db: db, cache: cache}
}

// Register mounts the probes on mux. These sit outside the tenant pipeline.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Live)
	mux.HandleFunc("GET /readyz", h.Ready)
}

type healthView struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live reports process liveness.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthView{Status: "ok"})
}

// Ready reports whether the gateway can serve traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache(ctx); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	view := healthView{Status: "ok", Checks: checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		view.Status = "degraded"
	}
	httpx.WriteJSON(w, status, view)
}
