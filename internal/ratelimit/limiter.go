package ratelimit

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// KeyFunc derives the limit key for a request. An empty key means the request
// is not subject to this limiter and passes through untouched.
type KeyFunc func(r *http.Request) string

// Limiter applies one rate-limit instance to HTTP traffic.
type Limiter struct {
	cfg   Config
	store Store
	keyF  KeyFunc

	// failOpen controls behavior when the store is unreachable: forward the
	// request (true) or refuse it (false).
	failOpen func(err error, r *http.Request) bool
	onReject func(w http.ResponseWriter, r *http.Request, res Result)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithFailOpen sets whether requests pass when the store errors. The default
// is fail-open.
func WithFailOpen(open bool) Option {
	return func(l *Limiter) {
		l.failOpen = func(err error, r *http.Request) bool {
			log.Printf("rate limiter %q store error (fail_open=%t): %v", l.cfg.Name, open, err)
			return open
		}
	}
}

// WithRejectHandler overrides the 429 response writer.
func WithRejectHandler(h func(w http.ResponseWriter, r *http.Request, res Result)) Option {
	return func(l *Limiter) { l.onReject = h }
}

// NewMemoryLimiter builds a Limiter over an in-process store.
func NewMemoryLimiter(cfg Config, keyF KeyFunc, opts ...Option) *Limiter {
	store := NewMemoryStore(cfg.effectivePoints(), cfg.Duration, cfg.BlockDuration)
	return newLimiter(cfg, store, keyF, opts...)
}

// NewRedisLimiter builds a Limiter over a shared Redis store, namespaced by
// cfg.Name.
func NewRedisLimiter(cfg Config, client *redis.Client, keyF KeyFunc, opts ...Option) *Limiter {
	store := NewRedisStore(client, cfg.Name, cfg.effectivePoints(), cfg.Duration, cfg.BlockDuration)
	return newLimiter(cfg, store, keyF, opts...)
}

// NewLimiter builds a Limiter over a caller-supplied store. The store must
// already be configured with cfg's effective threshold.
func NewLimiter(cfg Config, store Store, keyF KeyFunc, opts ...Option) *Limiter {
	return newLimiter(cfg, store, keyF, opts...)
}

func newLimiter(cfg Config, store Store, keyF KeyFunc, opts ...Option) *Limiter {
	l := &Limiter{cfg: cfg, store: store, keyF: keyF}
	WithFailOpen(true)(l)
	l.onReject = defaultReject
	for _, o := range opts {
		o(l)
	}
	return l
}

func defaultReject(w http.ResponseWriter, r *http.Request, res Result) {
	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
}

// Middleware wraps next with this limiter instance.
//
// Every mode first refuses requests for keys that are currently blocked.
// ModeLimit then consumes a point before forwarding. ModeFail and ModeSuccess
// forward first and settle afterward from the response status: fail mode
// clears the key on 2xx and consumes on anything else; success mode consumes
// on 2xx and does nothing on a failed outcome.
// A Rejection raised by the settling consume is recorded in the store
// (the block starts) but the already-written response is left alone.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.keyF(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		res, err := l.store.Peek(ctx, key)
		if err != nil {
			if !l.failOpen(err, r) {
				l.onReject(w, r, Result{})
				return
			}
		} else if res != nil && res.ConsumedPoints > l.cfg.effectivePoints() {
			l.onReject(w, r, *res)
			return
		}

		if l.cfg.Mode == ModeLimit {
			if _, err := l.store.Consume(ctx, key); err != nil {
				var rej *Rejection
				if errors.As(err, &rej) {
					l.onReject(w, r, rej.Result)
					return
				}
				if !l.failOpen(err, r) {
					l.onReject(w, r, Result{})
					return
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		l.settle(ctx, key, sw.succeeded(), r)
	})
}

// settle applies the post-outcome bookkeeping for fail and success modes.
func (l *Limiter) settle(ctx context.Context, key string, succeeded bool, r *http.Request) {
	var err error
	switch {
	case l.cfg.Mode == ModeFail && succeeded:
		err = l.store.Delete(ctx, key)
	case l.cfg.Mode == ModeFail && !succeeded:
		_, err = l.store.Consume(ctx, key)
	case l.cfg.Mode == ModeSuccess && succeeded:
		_, err = l.store.Consume(ctx, key)
		// ModeSuccess on failure: no action. Failures neither consume nor
		// reset the accumulated successes.
	}
	if err == nil {
		return
	}
	// A Rejection here just means the block started; the response already
	// went out and the peek on the next request enforces it.
	var rej *Rejection
	if errors.As(err, &rej) {
		return
	}
	log.Printf("rate limiter %q settle error for key %q: %v", l.cfg.Name, key, err)
}

// statusWriter records the status code written downstream.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// succeeded treats any 2xx (or an unwritten status, which net/http turns into
// 200) as a successful outcome.
func (w *statusWriter) succeeded() bool {
	return w.status == 0 || (w.status >= 200 && w.status < 300)
}

// ClientIP extracts the caller address: the first entry of X-Forwarded-For
// when present, otherwise the connection's remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := fwd
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			ip = fwd[:i]
		}
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IdentityIPKey builds the conventional limit key "identity_ip". identity is
// typically the account public id, or empty for anonymous traffic.
func IdentityIPKey(identity func(r *http.Request) string) KeyFunc {
	return func(r *http.Request) string {
		id := identity(r)
		if id == "" {
			return ""
		}
		return id + "_" + ClientIP(r)
	}
}

// IPKey keys purely by caller address.
func IPKey() KeyFunc {
	return func(r *http.Request) string { return ClientIP(r) }
}
