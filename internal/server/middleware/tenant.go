package middleware

import (
	"errors"
	"net/http"

	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/tenant"
)

// ResolveTenant resolves the request's tenant from its host headers and puts
// it in the context. Unknown or inactive tenants terminate the request; no
// route is served outside a tenant.
func ResolveTenant(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := resolver.Resolve(r.Context(), tenant.DomainFromRequest(r))
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					httpx.WriteError(w, r, httpx.E(httpx.CodeTenantNotFound, "tenant not found"))
					return
				}
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}
