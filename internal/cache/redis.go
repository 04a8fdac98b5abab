package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a shared Redis instance. Keys are prefixed with
// the namespace so multiple gateway processes share one keyspace safely.
type Redis struct {
	client *redis.Client
}

// NewRedis returns a Cache over the given client. The caller owns the client lifecycle.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get returns the value for namespace+key, with ok false on miss.
func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, namespace+":"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Set stores value under namespace+key for ttl.
func (r *Redis) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

// Delete removes namespace+key. Deleting an absent key is not an error.
func (r *Redis) Delete(ctx context.Context, namespace, key string) error {
	return r.client.Del(ctx, namespace+":"+key).Err()
}
