package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenant-gateway/internal/cache"
	"tenant-gateway/internal/session"
	sessiondomain "tenant-gateway/internal/session/domain"
	"tenant-gateway/internal/tenant"
	tenantdomain "tenant-gateway/internal/tenant/domain"
)

type fakeTenantSource struct {
	tenants map[string]*tenantdomain.Tenant
}

func (f *fakeTenantSource) GetActiveByDomain(ctx context.Context, reqDomain string) (*tenantdomain.Tenant, error) {
	return f.tenants[reqDomain], nil
}

type fakeSessionRepo struct {
	rows map[string]*sessiondomain.SessionWithCaller
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error { return nil }

func (f *fakeSessionRepo) GetWithCaller(ctx context.Context, token string) (*sessiondomain.SessionWithCaller, error) {
	rec, ok := f.rows[token]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSessionRepo) UpdateExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	if rec, ok := f.rows[token]; ok {
		rec.Session.ExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	delete(f.rows, token)
	return nil
}

func (f *fakeSessionRepo) ListTokensByAccount(ctx context.Context, accountID int64) ([]string, error) {
	return nil, nil
}

func (f *fakeSessionRepo) DeleteByTokens(ctx context.Context, tokens []string) error { return nil }

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func newTestPipeline(t *testing.T) (*tenant.Resolver, *session.Validator, *fakeSessionRepo) {
	t.Helper()
	mem := cache.NewMemory()
	t.Cleanup(mem.Close)

	source := &fakeTenantSource{tenants: map[string]*tenantdomain.Tenant{
		"acme.com": {ID: 1, PublicID: "tenant_abc", Name: "Acme", Status: tenantdomain.TenantStatusActive},
	}}
	resolver := tenant.NewResolver(source, cache.NewNamespace(mem, "tenants", time.Hour))

	repo := &fakeSessionRepo{rows: make(map[string]*sessiondomain.SessionWithCaller)}
	store := session.NewStore(repo, cache.NewNamespace(mem, "sessions", time.Hour))
	validator := session.NewValidator(store, time.Hour)
	return resolver, validator, repo
}

func sessionRecord(token, tenantID string, expiresAt time.Time) *sessiondomain.SessionWithCaller {
	return &sessiondomain.SessionWithCaller{
		Session: sessiondomain.Session{
			Token:           token,
			PublicID:        "session_1",
			AccountID:       1,
			AccountPublicID: "account_1",
			ExpiresAt:       expiresAt,
		},
		Caller: sessiondomain.Caller{
			AccountID:       1,
			AccountPublicID: "account_1",
			TenantID:        tenantID,
			Role:            "user",
		},
	}
}

func TestResolveTenant(t *testing.T) {
	resolver, _, _ := newTestPipeline(t)

	var seen *tenantdomain.Tenant
	h := ResolveTenant(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TenantFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.com"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seen == nil || seen.PublicID != "tenant_abc" {
		t.Errorf("tenant in context = %+v", seen)
	}

	// X-Forwarded-Host outranks Host.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.example"
	req.Header.Set("X-Forwarded-Host", "acme.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("forwarded host: status = %d, want 200", rr.Code)
	}
}

func TestResolveTenantUnknownDomain(t *testing.T) {
	resolver, _, _ := newTestPipeline(t)
	h := ResolveTenant(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an unknown domain")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nobody.example"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "TENANT_NOT_FOUND" {
		t.Errorf("code = %q, want TENANT_NOT_FOUND", body.Error.Code)
	}
}

func tenantCtx(r *http.Request) *http.Request {
	return r.WithContext(WithTenant(r.Context(), &tenantdomain.Tenant{
		PublicID: "tenant_abc", Status: tenantdomain.TenantStatusActive,
	}))
}

func TestAuthenticateValidCookie(t *testing.T) {
	_, validator, repo := newTestPipeline(t)
	repo.rows["tok_1"] = sessionRecord("tok_1", "tenant_abc", time.Now().Add(time.Hour))

	var caller *sessiondomain.Caller
	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = CallerFrom(r.Context())
	}))

	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok_1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if caller == nil || caller.AccountPublicID != "account_1" {
		t.Errorf("caller = %+v", caller)
	}
}

func TestAuthenticateAnonymousPassThrough(t *testing.T) {
	_, validator, _ := newTestPipeline(t)
	ran := false
	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		if _, ok := SessionFrom(r.Context()); ok {
			t.Error("anonymous request must not carry a session")
		}
	}))

	// No token at all.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil)))
	if !ran {
		t.Fatal("handler must run for anonymous requests")
	}

	// Invalid token: cleared cookie, still anonymous.
	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok_bogus"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("invalid token: status = %d, want 200 (anonymous)", rr.Code)
	}
}

func TestAuthenticateTenantMismatch(t *testing.T) {
	_, validator, repo := newTestPipeline(t)
	repo.rows["tok_1"] = sessionRecord("tok_1", "tenant_other", time.Now().Add(time.Hour))

	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on tenant mismatch")
	}))

	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok_1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthenticateSuperAdminCrossesTenants(t *testing.T) {
	_, validator, repo := newTestPipeline(t)
	rec := sessionRecord("tok_root", "", time.Now().Add(time.Hour))
	rec.Caller.Role = "system_admin"
	repo.rows["tok_root"] = rec

	ran := false
	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))
	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok_root"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ran {
		t.Error("system admin session must pass in any tenant")
	}
}

func TestAuthenticateBearerToken(t *testing.T) {
	_, validator, repo := newTestPipeline(t)
	repo.rows["tok_api"] = sessionRecord("tok_api", "tenant_abc", time.Now().Add(time.Hour))

	var ok bool
	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = SessionFrom(r.Context())
	}))
	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.Header.Set("Authorization", "Bearer tok_api")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok {
		t.Error("bearer token must authenticate")
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSession(req.Context(), sessionRecord("tok", "tenant_abc", time.Now().Add(time.Hour))))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated: status = %d, want 200", rr.Code)
	}
}

func TestAuthenticateRefreshReissuesCookie(t *testing.T) {
	_, validator, repo := newTestPipeline(t)
	// Past half of the 1h lifetime: refresh path.
	repo.rows["tok_old"] = sessionRecord("tok_old", "tenant_abc", time.Now().Add(10*time.Minute))

	h := Authenticate(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := tenantCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok_old"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	cookies := rr.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == SessionCookie && c.Value == "tok_old" && c.Expires.After(time.Now().Add(50*time.Minute)) {
			found = true
		}
	}
	if !found {
		t.Errorf("refreshed session must re-issue the cookie with the new expiry; cookies = %+v", cookies)
	}
}

func TestClientIPContext(t *testing.T) {
	var got string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4455"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "203.0.113.9" {
		t.Errorf("ClientIPFrom = %q, want 203.0.113.9", got)
	}
}
