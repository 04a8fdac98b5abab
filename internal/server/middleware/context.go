// Package middleware carries the per-request pipeline: tenant resolution,
// session authentication, and the context threading between them. The order
// is fixed (tenant first, then auth, then rate limiting) because each stage
// keys off what the previous one put in the context.
package middleware

import (
	"context"

	sessiondomain "tenant-gateway/internal/session/domain"
	tenantdomain "tenant-gateway/internal/tenant/domain"
)

type contextKey struct{ name string }

var (
	tenantKey  = contextKey{"tenant"}
	sessionKey = contextKey{"session"}
	carrierKey = contextKey{"carrier"}
)

// carrier is a mutable per-request slot installed at the top of the chain.
// Context values only flow downward, so middlewares that run before tenant
// resolution (the access log) read what later stages resolved through here.
type carrier struct {
	tenant  *tenantdomain.Tenant
	session *sessiondomain.SessionWithCaller
}

func withCarrier(ctx context.Context) context.Context {
	return context.WithValue(ctx, carrierKey, &carrier{})
}

func carrierFrom(ctx context.Context) *carrier {
	v, _ := ctx.Value(carrierKey).(*carrier)
	return v
}

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, t *tenantdomain.Tenant) context.Context {
	if c := carrierFrom(ctx); c != nil {
		c.tenant = t
	}
	return context.WithValue(ctx, tenantKey, t)
}

// TenantFrom returns the resolved tenant from ctx and true if set.
func TenantFrom(ctx context.Context) (*tenantdomain.Tenant, bool) {
	v, ok := ctx.Value(tenantKey).(*tenantdomain.Tenant)
	return v, ok
}

// WithSession returns a context carrying the validated session and caller.
func WithSession(ctx context.Context, rec *sessiondomain.SessionWithCaller) context.Context {
	if c := carrierFrom(ctx); c != nil {
		c.session = rec
	}
	return context.WithValue(ctx, sessionKey, rec)
}

// SessionFrom returns the validated session from ctx and true if set. Routes
// behind RequireAuth can rely on ok being true.
func SessionFrom(ctx context.Context) (*sessiondomain.SessionWithCaller, bool) {
	v, ok := ctx.Value(sessionKey).(*sessiondomain.SessionWithCaller)
	return v, ok
}

// CallerFrom returns the authenticated caller from ctx and true if set.
func CallerFrom(ctx context.Context) (*sessiondomain.Caller, bool) {
	rec, ok := SessionFrom(ctx)
	if !ok {
		return nil, false
	}
	return &rec.Caller, true
}
