// Package server assembles the HTTP pipeline: request id, access log, tenant
// resolution, session authentication, and the stacked rate limiters, with the
// route handlers mounted behind them.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	accountrepo "tenant-gateway/internal/account/repository"
	"tenant-gateway/internal/admin"
	"tenant-gateway/internal/audit"
	auditrepo "tenant-gateway/internal/audit/repository"
	"tenant-gateway/internal/auth"
	"tenant-gateway/internal/authz"
	cachepkg "tenant-gateway/internal/cache"
	"tenant-gateway/internal/config"
	"tenant-gateway/internal/health"
	"tenant-gateway/internal/httpx"
	"tenant-gateway/internal/ratelimit"
	"tenant-gateway/internal/security"
	"tenant-gateway/internal/server/middleware"
	"tenant-gateway/internal/session"
	sessionrepo "tenant-gateway/internal/session/repository"
	"tenant-gateway/internal/telemetry"
	"tenant-gateway/internal/tenant"
	tenantrepo "tenant-gateway/internal/tenant/repository"
)

// Global limiter instances, matching the production edge profile: a fail
// limiter that punishes repeated error responses, and a plain throughput cap.
// Login carries its own tighter fail limiter on top.
var (
	globalFailLimit = ratelimit.Config{
		Name: "global_fail", Points: 50, Duration: time.Hour,
		BlockDuration: 10 * time.Minute, Mode: ratelimit.ModeFail,
	}
	globalRateLimit = ratelimit.Config{
		Name: "rate_limits", Points: 1000, Duration: time.Minute,
		BlockDuration: 10 * time.Minute, Mode: ratelimit.ModeLimit,
	}
	authFailLimit = ratelimit.Config{
		Name: "auth_fail", Points: 5, Duration: time.Hour,
		BlockDuration: 10 * time.Minute, Mode: ratelimit.ModeFail,
	}
)

// Deps holds the shared infrastructure the pipeline is built from.
type Deps struct {
	Cfg   *config.Config
	DB    *sql.DB
	Cache cachepkg.Cache
	// Redis is non-nil when the redis cache driver is selected; the rate
	// limiters then share quota state across gateway processes.
	Redis *redis.Client
	// Emitter receives per-request telemetry events. May be nil.
	Emitter telemetry.EventEmitter
	// Sink receives persisted audit entries for fan-out. May be nil.
	Sink audit.Sink
}

// NewHandler wires the repositories, services, and middleware chain and
// returns the root handler.
func NewHandler(ctx context.Context, d Deps) (http.Handler, error) {
	tenants := tenantrepo.NewPostgresRepository(d.DB)
	accounts := accountrepo.NewPostgresRepository(d.DB)
	sessions := sessionrepo.NewPostgresRepository(d.DB)
	audits := auditrepo.NewPostgresRepository(d.DB)

	resolver := tenant.NewResolver(tenants,
		cachepkg.NewNamespace(d.Cache, "tenants", d.Cfg.TenantTTL()))
	sessionStore := session.NewStore(sessions,
		cachepkg.NewNamespace(d.Cache, "sessions", d.Cfg.SessionCacheDuration()))
	validator := session.NewValidator(sessionStore, d.Cfg.SessionLifetime())

	auditLogger := audit.NewLogger(audits, d.Sink, middleware.ClientIPFrom)
	hasher := security.NewHasher(d.Cfg.BcryptCost)
	authSvc := auth.NewService(accounts, sessionStore, hasher, auditLogger, d.Cfg.SessionLifetime())

	guard, err := authz.NewGuard(ctx)
	if err != nil {
		return nil, err
	}

	limiterOpts := []ratelimit.Option{
		ratelimit.WithFailOpen(d.Cfg.RateLimitFailOpen),
		ratelimit.WithRejectHandler(rejectRateLimited(auditLogger)),
	}
	failLimiter := newLimiter(globalFailLimit, d.Redis, callerKey, limiterOpts...)
	rateLimiter := newLimiter(globalRateLimit, d.Redis, callerKey, limiterOpts...)
	loginLimiter := newLimiter(authFailLimit, d.Redis, ratelimit.IPKey(), limiterOpts...)

	mux := http.NewServeMux()
	authHandler := auth.NewHandler(authSvc)
	// The login route carries the tighter fail limiter on top of the globals.
	authHandler.Register(mux, middleware.RequireAuth, loginLimiter.Middleware)

	adminHandler := admin.NewHandler(tenants, audits)
	adminHandler.Register(mux, authz.RequireAdmin(guard))

	// Tenant pipeline, innermost last: both limiters run after auth so the
	// key reflects the authenticated caller.
	var tenantHandler http.Handler = mux
	tenantHandler = rateLimiter.Middleware(tenantHandler)
	tenantHandler = failLimiter.Middleware(tenantHandler)
	tenantHandler = middleware.Authenticate(validator)(tenantHandler)
	tenantHandler = middleware.ResolveTenant(resolver)(tenantHandler)

	root := http.NewServeMux()
	healthHandler := health.NewHandler(d.DB, cacheCheck(d.Cache))
	healthHandler.Register(root)
	root.Handle("/", tenantHandler)

	var handler http.Handler = root
	handler = middleware.AccessLog(d.Emitter)(handler)
	handler = middleware.ClientIP(handler)
	handler = httpx.RequestID(handler)
	return handler, nil
}

// callerKey keys limiters by "account_ip" for authenticated callers and by
// the bare address for anonymous traffic.
func callerKey(r *http.Request) string {
	ip := ratelimit.ClientIP(r)
	if c, ok := middleware.CallerFrom(r.Context()); ok {
		return c.AccountPublicID + "_" + ip
	}
	return ip
}

func newLimiter(cfg ratelimit.Config, client *redis.Client, keyF ratelimit.KeyFunc, opts ...ratelimit.Option) *ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisLimiter(cfg, client, keyF, opts...)
	}
	return ratelimit.NewMemoryLimiter(cfg, keyF, opts...)
}

// rejectRateLimited writes the 429 in the API error shape and audits the hit.
func rejectRateLimited(auditLogger *audit.Logger) func(http.ResponseWriter, *http.Request, ratelimit.Result) {
	return func(w http.ResponseWriter, r *http.Request, res ratelimit.Result) {
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
		tenantID := ""
		if t, ok := middleware.TenantFrom(r.Context()); ok {
			tenantID = t.PublicID
		}
		accountID := ""
		if c, ok := middleware.CallerFrom(r.Context()); ok {
			accountID = c.AccountPublicID
		}
		auditLogger.LogEvent(r.Context(), tenantID, accountID, "ratelimit.rejected", "gateway", r.URL.Path)
		httpx.WriteError(w, r, httpx.E(httpx.CodeRateLimited, "rate limit exceeded"))
	}
}

func cacheCheck(c cachepkg.Cache) health.CacheChecker {
	return func(ctx context.Context) error {
		_, _, err := c.Get(ctx, "health", "probe")
		return err
	}
}
