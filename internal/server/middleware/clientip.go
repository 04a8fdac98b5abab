package middleware

import (
	"context"
	"net/http"

	"tenant-gateway/internal/ratelimit"
)

var clientIPKey = contextKey{"client_ip"}

// ClientIP stores the caller's address in the context so components that only
// see a context (the audit logger) can record it.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, ratelimit.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFrom returns the caller address from ctx, or "" if not set.
func ClientIPFrom(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
