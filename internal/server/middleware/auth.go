package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/session"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "session"

// TokenFromRequest extracts the session token from the session cookie, or
// from an Authorization bearer header for non-browser clients. Returns ""
// when the request is anonymous.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// SetSessionCookie writes the session cookie with the token's expiry.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate validates the request's session token, if any, and puts the
// session in the context. An absent, invalid, or expired token leaves the
// request anonymous rather than failing it; routes that need a caller add
// RequireAuth on top. A valid session for an account outside the resolved
// tenant is an authorization failure, not an anonymous pass-through.
//
// A session extended by the sliding refresh comes back flagged fresh; the
// cookie is re-issued so the client's copy tracks the new expiry.
func Authenticate(validator *session.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			rec, err := validator.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrSessionInvalid) {
					ClearSessionCookie(w)
					next.ServeHTTP(w, r)
					return
				}
				httpx.WriteError(w, r, err)
				return
			}

			if t, ok := TenantFrom(r.Context()); ok {
				admin := rec.Caller.TenantID == ""
				if !admin && rec.Caller.TenantID != t.PublicID {
					httpx.WriteError(w, r, httpx.E(httpx.CodeUnauthorized, "session does not belong to this tenant"))
					return
				}
			}

			if rec.Session.Fresh {
				SetSessionCookie(w, rec.Session.Token, rec.Session.ExpiresAt)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), rec)))
		})
	}
}

// RequireAuth refuses anonymous requests. Must sit after Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			httpx.WriteError(w, r, httpx.E(httpx.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
