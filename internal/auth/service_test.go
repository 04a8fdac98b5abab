package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accountdomain "tenant-gateway/internal/account/domain"
	"tenant-gateway/internal/security"
	sessiondomain "tenant-gateway/internal/session/domain"
)

type memAccountRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*accountdomain.Account // key tenantID+"|"+email
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{rows: make(map[string]*accountdomain.Account)}
}

func (r *memAccountRepo) GetByEmail(ctx context.Context, tenantID, email string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[tenantID+"|"+email]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) Create(ctx context.Context, a *accountdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	cp := *a
	r.rows[a.TenantID+"|"+a.Email] = &cp
	return nil
}

func (r *memAccountRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ID == id {
			a.LastLoginAt = &at
		}
	}
	return nil
}

type memSessionStore struct {
	mu   sync.Mutex
	rows map[string]*sessiondomain.SessionWithCaller
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{rows: make(map[string]*sessiondomain.SessionWithCaller)}
}

func (s *memSessionStore) CreateSession(ctx context.Context, rec *sessiondomain.SessionWithCaller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.Session.Token] = rec
	return nil
}

func (s *memSessionStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, token)
	return nil
}

func (s *memSessionStore) DeleteAllSessionsForAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, rec := range s.rows {
		if rec.Session.AccountID == accountID {
			delete(s.rows, t)
		}
	}
	return nil
}

type memRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *memRecorder) Record(ctx context.Context, tenantID, accountPublicID, action, detail string) {
	r.mu.Lock()
	r.actions = append(r.actions, action)
	r.mu.Unlock()
}

func (r *memRecorder) has(action string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actions {
		if a == action {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *memAccountRepo, *memSessionStore, *memRecorder) {
	accounts := newMemAccountRepo()
	sessions := newMemSessionStore()
	rec := &memRecorder{}
	svc := NewService(accounts, sessions, security.NewHasher(4), rec, time.Hour)
	return svc, accounts, sessions, rec
}

func signupParams() SignupParams {
	return SignupParams{
		FirstName: "Ada",
		LastName:  "L",
		Email:     "ada@example.com",
		Mobile:    "5551234",
		Password:  "correct-horse",
		Device:    "web",
		OS:        "linux",
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, sessions, rec := newTestService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, "tenant_abc", signupParams())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Token == "" {
		t.Fatal("Signup must open a session")
	}
	if res.Account.TenantID != "tenant_abc" || res.Account.Role != accountdomain.RoleUser {
		t.Errorf("account = %+v, want tenant_abc/user", res.Account)
	}
	if _, ok := sessions.rows[res.Token]; !ok {
		t.Error("session not stored")
	}
	if !rec.has("auth.signup") {
		t.Error("signup not audited")
	}

	login, err := svc.Login(ctx, "tenant_abc", LoginParams{Email: "Ada@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == res.Token {
		t.Error("login must issue a new token")
	}
	if login.Account.LastLoginAt == nil {
		t.Error("login must stamp LastLoginAt")
	}
	caller := sessions.rows[login.Token].Caller
	if caller.TenantID != "tenant_abc" || caller.Role != "user" {
		t.Errorf("caller = %+v", caller)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "tenant_abc", signupParams()); err != nil {
		t.Fatalf("first Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "tenant_abc", signupParams()); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Errorf("second Signup = %v, want ErrEmailAlreadyRegistered", err)
	}
	// Same email under a different tenant is fine.
	if _, err := svc.Signup(ctx, "tenant_other", signupParams()); err != nil {
		t.Errorf("Signup in other tenant: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := signupParams()
	p.Email = "not-an-email"
	if _, err := svc.Signup(ctx, "tenant_abc", p); !errors.Is(err, ErrValidation) {
		t.Errorf("bad email = %v, want ErrValidation", err)
	}

	p = signupParams()
	p.Password = "short"
	if _, err := svc.Signup(ctx, "tenant_abc", p); !errors.Is(err, ErrValidation) {
		t.Errorf("short password = %v, want ErrValidation", err)
	}
}

func TestLoginRejectsWrongPasswordAndUnknownEmail(t *testing.T) {
	svc, _, _, rec := newTestService()
	ctx := context.Background()
	if _, err := svc.Signup(ctx, "tenant_abc", signupParams()); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := svc.Login(ctx, "tenant_abc", LoginParams{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "tenant_abc", LoginParams{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
	if !rec.has("auth.login_failed") {
		t.Error("failed login not audited")
	}
}

func TestLoginIsTenantScoped(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Signup(ctx, "tenant_abc", signupParams()); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// The account exists only under tenant_abc.
	_, err := svc.Login(ctx, "tenant_other", LoginParams{Email: "ada@example.com", Password: "correct-horse"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("cross-tenant login = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginSuperAdminCrossesTenants(t *testing.T) {
	svc, accounts, sessions, _ := newTestService()
	ctx := context.Background()

	hash, _ := security.NewHasher(4).Hash([]byte("root-password"))
	admin := &accountdomain.Account{
		PublicID:     "account_root",
		TenantID:     "", // cross-tenant
		Email:        "root@example.com",
		Mobile:       "5550000",
		Role:         accountdomain.RoleSystemAdmin,
		PasswordHash: hash,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := svc.Login(ctx, "tenant_abc", LoginParams{Email: "root@example.com", Password: "root-password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if caller := sessions.rows[res.Token].Caller; caller.TenantID != "" || caller.Role != "system_admin" {
		t.Errorf("caller = %+v, want cross-tenant system_admin", caller)
	}
}

func TestLogout(t *testing.T) {
	svc, _, sessions, rec := newTestService()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "tenant_abc", signupParams())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if err := svc.Logout(ctx, "tenant_abc", res.Account.PublicID, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := sessions.rows[res.Token]; ok {
		t.Error("session must be deleted")
	}
	if !rec.has("auth.logout") {
		t.Error("logout not audited")
	}
	// Empty token is a no-op.
	if err := svc.Logout(ctx, "tenant_abc", "", ""); err != nil {
		t.Errorf("Logout(empty) = %v", err)
	}
}

func TestLogoutEverywhere(t *testing.T) {
	svc, _, sessions, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "tenant_abc", signupParams())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Login(ctx, "tenant_abc", LoginParams{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(sessions.rows) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions.rows))
	}

	caller := sessiondomain.Caller{AccountID: res.Account.ID, AccountPublicID: res.Account.PublicID}
	if err := svc.LogoutEverywhere(ctx, "tenant_abc", &caller); err != nil {
		t.Fatalf("LogoutEverywhere: %v", err)
	}
	if len(sessions.rows) != 0 {
		t.Errorf("sessions left = %d, want 0", len(sessions.rows))
	}
}
