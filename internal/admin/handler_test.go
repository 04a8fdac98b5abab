package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	auditdomain "tenant-gateway/internal/audit/domain"
	"tenant-gateway/internal/server/middleware"
	tenantdomain "tenant-gateway/internal/tenant/domain"
)

type fakeTenantRepo struct {
	tenant   *tenantdomain.Tenant
	status   tenantdomain.TenantStatus
	settings map[string]any
}

func (f *fakeTenantRepo) GetActiveByDomain(ctx context.Context, reqDomain string) (*tenantdomain.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantRepo) GetByPublicID(ctx context.Context, publicID string) (*tenantdomain.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeTenantRepo) Create(ctx context.Context, t *tenantdomain.Tenant, domains []string) error {
	return nil
}

func (f *fakeTenantRepo) SetStatus(ctx context.Context, publicID string, status tenantdomain.TenantStatus) error {
	f.status = status
	return nil
}

func (f *fakeTenantRepo) UpdateSettings(ctx context.Context, publicID string, settings map[string]any) error {
	f.settings = settings
	return nil
}

type fakeAuditRepo struct {
	logs       []*auditdomain.AuditLog
	lastLimit  int32
	lastOffset int32
}

func (f *fakeAuditRepo) GetByID(ctx context.Context, id string) (*auditdomain.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.logs, nil
}

func (f *fakeAuditRepo) Create(ctx context.Context, a *auditdomain.AuditLog) error { return nil }

func adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithTenant(req.Context(), &tenantdomain.Tenant{
		PublicID: "tenant_abc",
		Name:     "Acme",
		Status:   tenantdomain.TenantStatusActive,
		Settings: map[string]any{"plan": "pro"},
	}))
}

func TestGetTenant(t *testing.T) {
	h := NewHandler(&fakeTenantRepo{}, &fakeAuditRepo{})
	rr := httptest.NewRecorder()
	h.GetTenant(rr, adminRequest(http.MethodGet, "/admin/tenant", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.ID != "tenant_abc" || body.Data.Status != "active" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetTenantWithoutTenant(t *testing.T) {
	h := NewHandler(&fakeTenantRepo{}, &fakeAuditRepo{})
	rr := httptest.NewRecorder()
	h.GetTenant(rr, httptest.NewRequest(http.MethodGet, "/admin/tenant", nil))
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestUpdateSettings(t *testing.T) {
	repo := &fakeTenantRepo{}
	h := NewHandler(repo, &fakeAuditRepo{})
	rr := httptest.NewRecorder()
	h.UpdateSettings(rr, adminRequest(http.MethodPatch, "/admin/tenant/settings", `{"plan":"enterprise","seats":50}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if repo.settings["plan"] != "enterprise" {
		t.Errorf("settings = %+v", repo.settings)
	}
}

func TestSetStatus(t *testing.T) {
	repo := &fakeTenantRepo{}
	h := NewHandler(repo, &fakeAuditRepo{})
	rr := httptest.NewRecorder()
	h.SetStatus(rr, adminRequest(http.MethodPatch, "/admin/tenant/status", `{"status":"inactive"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if repo.status != tenantdomain.TenantStatusInactive {
		t.Errorf("status persisted = %q", repo.status)
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	repo := &fakeTenantRepo{}
	h := NewHandler(repo, &fakeAuditRepo{})
	rr := httptest.NewRecorder()
	h.SetStatus(rr, adminRequest(http.MethodPatch, "/admin/tenant/status", `{"status":"suspended"}`))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if repo.status != "" {
		t.Errorf("status must not be persisted, got %q", repo.status)
	}
}

func TestListAuditLogs(t *testing.T) {
	audits := &fakeAuditRepo{logs: []*auditdomain.AuditLog{
		{ID: "log_1", Action: "auth.login", Resource: "auth", IP: "1.2.3.4", CreatedAt: time.Now()},
	}}
	h := NewHandler(&fakeTenantRepo{}, audits)
	rr := httptest.NewRecorder()
	h.ListAuditLogs(rr, adminRequest(http.MethodGet, "/admin/audit-logs?limit=10&offset=20", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if audits.lastLimit != 10 || audits.lastOffset != 20 {
		t.Errorf("limit/offset passed = %d/%d, want 10/20", audits.lastLimit, audits.lastOffset)
	}
	var body struct {
		Data []struct {
			ID     string `json:"id"`
			Action string `json:"action"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Action != "auth.login" {
		t.Errorf("data = %+v", body.Data)
	}
}

func TestListAuditLogsClampsLimit(t *testing.T) {
	audits := &fakeAuditRepo{}
	h := NewHandler(&fakeTenantRepo{}, audits)
	h.ListAuditLogs(httptest.NewRecorder(), adminRequest(http.MethodGet, "/admin/audit-logs?limit=9999&offset=-5", ""))
	if audits.lastLimit != 50 {
		t.Errorf("limit = %d, want fallback 50", audits.lastLimit)
	}
	if audits.lastOffset != 0 {
		t.Errorf("offset = %d, want 0", audits.lastOffset)
	}
}
