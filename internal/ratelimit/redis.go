package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript atomically grants one point and reports the new state in a
// single round trip. Two keys per limit key: a windowed counter and a block
// marker. INCR/PEXPIRE/SET happen inside the script so concurrent consumers
// cannot lose updates. Returns {rejected, consumedPoints, msBeforeNext}.
var consumeScript = redis.NewScript(`
local count_key = KEYS[1]
local block_key = KEYS[2]
local points = tonumber(ARGV[1])
local duration_ms = tonumber(ARGV[2])
local block_ms = tonumber(ARGV[3])

local block_ttl = redis.call('PTTL', block_key)
if block_ttl > 0 then
  local consumed = tonumber(redis.call('GET', count_key) or '0')
  return {1, consumed, block_ttl}
end

local consumed = redis.call('INCR', count_key)
if consumed == 1 then
  redis.call('PEXPIRE', count_key, duration_ms)
end
local ttl = redis.call('PTTL', count_key)
if ttl < 0 then
  redis.call('PEXPIRE', count_key, duration_ms)
  ttl = duration_ms
end

if consumed > points then
  if block_ms > 0 then
    redis.call('SET', block_key, '1', 'PX', block_ms)
    if ttl < block_ms then
      redis.call('PEXPIRE', count_key, block_ms)
    end
    return {1, consumed, block_ms}
  end
  return {1, consumed, ttl}
end
return {0, consumed, ttl}
`)

// RedisStore is a Store over a shared Redis instance, for gateways running as
// multiple processes against one quota space.
type RedisStore struct {
	client *redis.Client
	prefix string

	points        int
	duration      time.Duration
	blockDuration time.Duration
}

// NewRedisStore returns a Store namespaced by prefix over the given client.
func NewRedisStore(client *redis.Client, prefix string, points int, duration, blockDuration time.Duration) *RedisStore {
	return &RedisStore{
		client:        client,
		prefix:        prefix,
		points:        points,
		duration:      duration,
		blockDuration: blockDuration,
	}
}

func (s *RedisStore) countKey(key string) string { return s.prefix + ":" + key }
func (s *RedisStore) blockKey(key string) string { return s.prefix + ":block:" + key }

// Consume atomically grants one point via the Lua script. Returns *Rejection
// when the key is blocked or the window is exhausted.
func (s *RedisStore) Consume(ctx context.Context, key string) (Result, error) {
	vals, err := consumeScript.Run(ctx, s.client,
		[]string{s.countKey(key), s.blockKey(key)},
		s.points, s.duration.Milliseconds(), s.blockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: consume: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit: consume returned %d values", len(vals))
	}
	res := Result{ConsumedPoints: int(vals[1]), MsBeforeNext: vals[2]}
	if vals[0] == 1 {
		return Result{}, &Rejection{res}
	}
	return res, nil
}

// Peek reads the key's state without mutating it, or nil when absent.
func (s *RedisStore) Peek(ctx context.Context, key string) (*Result, error) {
	pipe := s.client.Pipeline()
	blockTTL := pipe.PTTL(ctx, s.blockKey(key))
	count := pipe.Get(ctx, s.countKey(key))
	countTTL := pipe.PTTL(ctx, s.countKey(key))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("ratelimit: peek: %w", err)
	}

	consumed, err := count.Int()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ratelimit: peek count: %w", err)
	}

	if ttl := blockTTL.Val(); ttl > 0 {
		return &Result{ConsumedPoints: consumed, MsBeforeNext: ttl.Milliseconds()}, nil
	}
	if ttl := countTTL.Val(); ttl > 0 {
		return &Result{ConsumedPoints: consumed, MsBeforeNext: ttl.Milliseconds()}, nil
	}
	return &Result{ConsumedPoints: consumed}, nil
}

// Delete clears both the counter and any block marker for the key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.countKey(key), s.blockKey(key)).Err()
}
