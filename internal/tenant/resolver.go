// Package tenant resolves an inbound request's domain to the tenant that owns
// it, with a read-through cache in front of the durable store.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tenant-gateway/internal/cache"
	"tenant-gateway/internal/tenant/domain"
)

// ErrTenantNotFound is returned when no active tenant is registered for the
// request domain. Callers must fail the request; there is no default tenant.
var ErrTenantNotFound = errors.New("tenant not found")

// Source is the durable lookup the resolver falls back to on cache miss.
type Source interface {
	GetActiveByDomain(ctx context.Context, reqDomain string) (*domain.Tenant, error)
}

// Resolver maps request domains to active tenants. The cache is advisory:
// concurrent cold lookups may each hit the durable store, which is harmless
// because the durable store stays authoritative.
type Resolver struct {
	source Source
	cache  *cache.Namespace
}

// NewResolver returns a Resolver over source with the given cache namespace.
func NewResolver(source Source, ns *cache.Namespace) *Resolver {
	return &Resolver{source: source, cache: ns}
}

// DomainFromRequest derives the canonical request domain, preferring
// X-Forwarded-Host, then X-Original-Host, then the Host header, then the URL
// host. First non-empty wins.
func DomainFromRequest(r *http.Request) string {
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		return h
	}
	if h := r.Header.Get("X-Original-Host"); h != "" {
		return h
	}
	if r.Host != "" {
		return r.Host
	}
	return r.URL.Host
}

// Resolve returns the active tenant for reqDomain. Cache hits return without
// touching the durable store; misses query it and populate the cache with the
// namespace TTL. Returns ErrTenantNotFound when no active tenant owns the
// domain. Cache failures degrade to durable lookups and are logged, never
// surfaced.
func (r *Resolver) Resolve(ctx context.Context, reqDomain string) (*domain.Tenant, error) {
	if reqDomain == "" {
		return nil, ErrTenantNotFound
	}

	if b, ok, err := r.cache.Get(ctx, reqDomain); err != nil {
		log.Printf("tenant cache get failed for %q: %v", reqDomain, err)
	} else if ok {
		var t domain.Tenant
		if err := json.Unmarshal(b, &t); err == nil {
			return &t, nil
		}
		// Undecodable entry: drop it and fall through to the durable store.
		_ = r.cache.Delete(ctx, reqDomain)
	}

	t, err := r.source.GetActiveByDomain(ctx, reqDomain)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}

	if b, err := json.Marshal(t); err == nil {
		if err := r.cache.Set(ctx, reqDomain, b); err != nil {
			log.Printf("tenant cache set failed for %q: %v", reqDomain, err)
		}
	}
	return t, nil
}
