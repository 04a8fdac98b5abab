package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	accountdomain "tenant-gateway/internal/account/domain"
	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/server/middleware"
)

// Handler exposes the auth service over HTTP. All routes run inside a
// resolved tenant; signup and login are anonymous, logout and me require a
// validated session.
type Handler struct {
	svc *Service
}

// NewHandler returns a Handler over svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the auth routes on mux. requireAuth wraps the routes that
// need a caller; loginGuard wraps the login route (its fail limiter).
func (h *Handler) Register(mux *http.ServeMux, requireAuth, loginGuard func(http.Handler) http.Handler) {
	if loginGuard == nil {
		loginGuard = func(next http.Handler) http.Handler { return next }
	}
	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.Handle("POST /auth/login", loginGuard(http.HandlerFunc(h.Login)))
	mux.Handle("POST /auth/logout", requireAuth(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /auth/logout-all", requireAuth(http.HandlerFunc(h.LogoutAll)))
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(h.Me)))
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Password  string `json:"password"`
	Device    string `json:"device"`
	OS        string `json:"os"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
	OS       string `json:"os"`
}

type accountView struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId,omitempty"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Role          string     `json:"role"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

type authView struct {
	Account   accountView `json:"account"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func viewOf(a *accountdomain.Account) accountView {
	return accountView{
		ID:            a.PublicID,
		TenantID:      a.TenantID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Role:          string(a.Role),
		LastLoginAt:   a.LastLoginAt,
	}
}

// Signup creates an account in the request's tenant and sets the session
// cookie for the new account.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, httpx.E(httpx.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.svc.Signup(r.Context(), t.PublicID, SignupParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  req.Password,
		Device:    req.Device,
		OS:        req.OS,
	})
	if err != nil {
		httpx.WriteError(w, r, mapServiceError(err))
		return
	}

	middleware.SetSessionCookie(w, res.Token, res.ExpiresAt)
	httpx.WriteData(w, http.StatusCreated, authView{Account: viewOf(res.Account), ExpiresAt: res.ExpiresAt})
}

// Login authenticates within the request's tenant and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	t, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, httpx.E(httpx.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.svc.Login(r.Context(), t.PublicID, LoginParams{
		Email:    req.Email,
		Password: req.Password,
		Device:   req.Device,
		OS:       req.OS,
	})
	if err != nil {
		httpx.WriteError(w, r, mapServiceError(err))
		return
	}

	middleware.SetSessionCookie(w, res.Token, res.ExpiresAt)
	httpx.WriteData(w, http.StatusOK, authView{Account: viewOf(res.Account), ExpiresAt: res.ExpiresAt})
}

// Logout deletes the caller's current session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rec, _ := middleware.SessionFrom(r.Context())
	tenantID := ""
	if t, ok := middleware.TenantFrom(r.Context()); ok {
		tenantID = t.PublicID
	}
	if err := h.svc.Logout(r.Context(), tenantID, rec.Caller.AccountPublicID, rec.Session.Token); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w)
	httpx.WriteData(w, http.StatusOK, nil)
}

// LogoutAll revokes every session of the caller's account.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	rec, _ := middleware.SessionFrom(r.Context())
	tenantID := ""
	if t, ok := middleware.TenantFrom(r.Context()); ok {
		tenantID = t.PublicID
	}
	if err := h.svc.LogoutEverywhere(r.Context(), tenantID, &rec.Caller); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w)
	httpx.WriteData(w, http.StatusOK, nil)
}

type meView struct {
	AccountID string    `json:"accountId"`
	TenantID  string    `json:"tenantId,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	Fresh     bool      `json:"fresh"`
}

// Me reports the caller behind the current session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rec, _ := middleware.SessionFrom(r.Context())
	httpx.WriteData(w, http.StatusOK, meView{
		AccountID: rec.Caller.AccountPublicID,
		TenantID:  rec.Caller.TenantID,
		Role:      rec.Caller.Role,
		ExpiresAt: rec.Session.ExpiresAt,
		Fresh:     rec.Session.Fresh,
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return httpx.E(httpx.CodeNotUnique, "email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		return httpx.E(httpx.CodeUnauthorized, "invalid credentials")
	case errors.Is(err, ErrValidation):
		return httpx.E(httpx.CodeBadRequest, err.Error())
	default:
		return err
	}
}
