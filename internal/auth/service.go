// Package auth implements signup, login, and logout for the gateway's own
// HTTP surface. The handlers are thin; everything stateful goes through the
// account repository and the session store adapter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "tenant-gateway/internal/account/domain"
	"tenant-gateway/internal/security"
	sessiondomain "tenant-gateway/internal/session/domain"
)

// Sentinel errors for the auth service; the handler maps them to API codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrValidation             = errors.New("validation failed")
)

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByEmail(ctx context.Context, tenantID, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// SessionStore is the minimal session store needed by the auth service.
type SessionStore interface {
	CreateSession(ctx context.Context, rec *sessiondomain.SessionWithCaller) error
	DeleteSession(ctx context.Context, token string) error
	DeleteAllSessionsForAccount(ctx context.Context, accountID int64) error
}

// Recorder receives audit events for auth outcomes. Implementations must not
// fail the request; recording is best-effort.
type Recorder interface {
	Record(ctx context.Context, tenantID, accountPublicID, action, detail string)
}

// Service implements signup, login, and logout within a resolved tenant.
type Service struct {
	accounts AccountRepo
	sessions SessionStore
	hasher   *security.Hasher
	audit    Recorder
	lifetime time.Duration
}

// NewService returns a Service with the given dependencies. lifetime is the
// full session lifetime granted at login.
func NewService(accounts AccountRepo, sessions SessionStore, hasher *security.Hasher, audit Recorder, lifetime time.Duration) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		audit:    audit,
		lifetime: lifetime,
	}
}

// SignupParams carries the signup request fields.
type SignupParams struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
	Device    string
	OS        string
}

// LoginParams carries the login request fields.
type LoginParams struct {
	Email    string
	Password string
	Device   string
	OS       string
}

// AuthResult is the outcome of a successful signup or login.
type AuthResult struct {
	Account   *accountdomain.Account
	Token     string
	ExpiresAt time.Time
}

// Signup creates an account in the tenant and opens its first session.
func (s *Service) Signup(ctx context.Context, tenantID string, p SignupParams) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hashed, err := s.hasher.Hash([]byte(p.Password))
	if err != nil {
		return nil, err
	}
	account := &accountdomain.Account{
		PublicID:     "account_" + uuid.New().String(),
		TenantID:     tenantID,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        email,
		Mobile:       strings.TrimSpace(p.Mobile),
		Role:         accountdomain.RoleUser,
		PasswordHash: hashed,
	}
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	res, err := s.openSession(ctx, account, p.Device, p.OS)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, tenantID, account.PublicID, "auth.signup", email)
	return res, nil
}

// Login authenticates email/password within the tenant and opens a session.
// Super admin accounts (no tenant of their own) may log in through any tenant.
func (s *Service) Login(ctx context.Context, tenantID string, p LoginParams) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" || p.Password == "" {
		return nil, ErrInvalidCredentials
	}
	account, err := s.accounts.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = s.accounts.GetByEmail(ctx, "", email)
		if err != nil {
			return nil, err
		}
	}
	if account == nil || !account.BelongsTo(tenantID) {
		s.audit.Record(ctx, tenantID, "", "auth.login_failed", email)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(account.PasswordHash, []byte(p.Password)); err != nil {
		s.audit.Record(ctx, tenantID, account.PublicID, "auth.login_failed", email)
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, err
	}
	res, err := s.openSession(ctx, account, p.Device, p.OS)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, tenantID, account.PublicID, "auth.login", email)
	return res, nil
}

// Logout deletes the session behind token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, tenantID, accountPublicID, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return err
	}
	s.audit.Record(ctx, tenantID, accountPublicID, "auth.logout", "")
	return nil
}

// LogoutEverywhere revokes all of the account's sessions.
func (s *Service) LogoutEverywhere(ctx context.Context, tenantID string, account *sessiondomain.Caller) error {
	if err := s.sessions.DeleteAllSessionsForAccount(ctx, account.AccountID); err != nil {
		return err
	}
	s.audit.Record(ctx, tenantID, account.AccountPublicID, "auth.logout_all", "")
	return nil
}

func (s *Service) openSession(ctx context.Context, account *accountdomain.Account, device, os string) (*AuthResult, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(s.lifetime)
	rec := &sessiondomain.SessionWithCaller{
		Session: sessiondomain.Session{
			Token:           token,
			PublicID:        "session_" + uuid.New().String(),
			AccountID:       account.ID,
			AccountPublicID: account.PublicID,
			Device:          strings.TrimSpace(device),
			OS:              strings.TrimSpace(os),
			ExpiresAt:       expiresAt,
		},
		Caller: sessiondomain.Caller{
			AccountID:       account.ID,
			AccountPublicID: account.PublicID,
			TenantID:        account.TenantID,
			Role:            string(account.Role),
		},
	}
	if err := s.sessions.CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}
