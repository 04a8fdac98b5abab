package authz

import (
	"net/http"

	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/server/middleware"
)

// RequireAdmin refuses callers the policy does not allow on admin routes.
// Must sit after the auth middleware so a caller is in the context.
func RequireAdmin(guard *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := middleware.CallerFrom(r.Context())
			if !ok {
				httpx.WriteError(w, r, httpx.E(httpx.CodeUnauthorized, "authentication required"))
				return
			}
			tenantID := ""
			if t, ok := middleware.TenantFrom(r.Context()); ok {
				tenantID = t.PublicID
			}
			allowed, err := guard.Allow(r.Context(), caller, tenantID)
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			if !allowed {
				httpx.WriteError(w, r, httpx.E(httpx.CodeInsufficientPermissions, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
