// Package admin exposes tenant-administration routes. Every route sits behind
// the authz guard: tenant admins manage their own tenant, system admins any.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	auditrepo "tenant-gateway/internal/audit/repository"
	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/server/middleware"
	tenantdomain "tenant-gateway/internal/tenant/domain"
	tenantrepo "tenant-gateway/internal/tenant/repository"
)

// Handler serves the admin routes for the request's resolved tenant.
type Handler struct {
	tenants tenantrepo.Repository
	audits  auditrepo.Repository
}

// NewHandler returns a Handler over the given repositories.
func NewHandler(tenants tenantrepo.Repository, audits auditrepo.Repository) *Handler {
	return &Handler{tenants: tenants, audits: audits}
}

// Register mounts the admin routes on mux behind requireAdmin.
func (h *Handler) Register(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/tenant", requireAdmin(http.HandlerFunc(h.GetTenant)))
	mux.Handle("PATCH /admin/tenant/settings", requireAdmin(http.HandlerFunc(h.UpdateSettings)))
	mux.Handle("PATCH /admin/tenant/status", requireAdmin(http.HandlerFunc(h.SetStatus)))
	mux.Handle("GET /admin/audit-logs", requireAdmin(http.HandlerFunc(h.ListAuditLogs)))
}

type tenantView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Settings map[string]any `json:"settings,omitempty"`
}

// GetTenant returns the resolved tenant's record.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	httpx.WriteData(w, http.StatusOK, tenantView{
		ID:       t.PublicID,
		Name:     t.Name,
		Status:   string(t.Status),
		Settings: t.Settings,
	})
}

// UpdateSettings replaces the tenant's settings bag. The change shows up for
// request routing only after the tenant cache entry expires.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	var settings map[string]any
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		httpx.WriteError(w, r, httpx.E(httpx.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.tenants.UpdateSettings(r.Context(), t.PublicID, settings); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, nil)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus activates or deactivates the tenant. Deactivation takes effect for
// new resolutions immediately and for cached ones when their entry expires.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, httpx.E(httpx.CodeBadRequest, "invalid request body"))
		return
	}
	status := tenantdomain.TenantStatus(req.Status)
	if status != tenantdomain.TenantStatusActive && status != tenantdomain.TenantStatusInactive {
		httpx.WriteError(w, r, httpx.E(httpx.CodeBadRequest, "status must be active or inactive"))
		return
	}
	if err := h.tenants.SetStatus(r.Context(), t.PublicID, status); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, nil)
}

type auditLogView struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId,omitempty"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	IP        string `json:"ip"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// ListAuditLogs returns the tenant's audit log, newest first. Query params
// limit (default 50, max 200) and offset page through it.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, err := h.audits.ListByTenant(r.Context(), t.PublicID, int32(limit), int32(offset))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]auditLogView, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogView{
			ID:        l.ID,
			AccountID: l.AccountID,
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	httpx.WriteData(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
