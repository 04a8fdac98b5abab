// Package cache provides a namespaced key/value cache with per-namespace TTL,
// backed by an in-process map or Redis. The backend is selected once at startup.
//
// Entries are advisory: callers must stay correct when any entry is evicted at
// any time. The durable store remains the source of truth for tenants and
// sessions; only rate-limit state lives exclusively in its backing store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the backend contract: byte values under namespace+key with a TTL.
type Cache interface {
	// Get returns the value for key in namespace, with ok false on miss.
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)
	// Set stores value under namespace+key for ttl. ttl <= 0 means no expiry.
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	// Delete removes namespace+key. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error
}

// Namespace binds a Cache to a fixed namespace and TTL so callers cannot
// mix namespaces or vary the TTL per call.
type Namespace struct {
	cache Cache
	name  string
	ttl   time.Duration
}

// NewNamespace returns a Namespace over c with the given name and TTL.
func NewNamespace(c Cache, name string, ttl time.Duration) *Namespace {
	return &Namespace{cache: c, name: name, ttl: ttl}
}

// Get returns the cached value for key, with ok false on miss.
func (n *Namespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.cache.Get(ctx, n.name, key)
}

// Set stores value under key with the namespace TTL.
func (n *Namespace) Set(ctx context.Context, key string, value []byte) error {
	return n.cache.Set(ctx, n.name, key, value, n.ttl)
}

// Delete removes key from the namespace.
func (n *Namespace) Delete(ctx context.Context, key string) error {
	return n.cache.Delete(ctx, n.name, key)
}

// New constructs the Cache selected by driver ("memory" or "redis") and a
// close function. For redis it dials and pings redisURL; connection failure is
// returned, not deferred, so a bad URL fails at startup.
func New(ctx context.Context, driver, redisURL string) (Cache, func() error, error) {
	switch driver {
	case "memory":
		m := NewMemory()
		return m, func() error { m.Close(); return nil }, nil
	case "redis":
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("cache: redis ping: %w", err)
		}
		return NewRedis(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("cache: unknown driver %q", driver)
	}
}
