package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix namespaces idempotency markers in Redis
	KeyPrefix = "idem:"
	// DefaultTTL is how long a claimed key stays claimed
	DefaultTTL = 24 * time.Hour
)

// RedisClient is the subset of redis operations the guard needs
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Guard provides atomic claim-once semantics for event and command keys.
// A key can be claimed exactly once per TTL window; every later claim within
// the window reports false.
type Guard struct {
	redis RedisClient
	ttl   time.Duration
}

// New creates a guard with the given default TTL (DefaultTTL when zero)
func New(redis RedisClient, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{redis: redis, ttl: ttl}
}

// FirstTime atomically claims key for ttl and reports whether this call was
// the first claimant. Redis errors are returned rather than swallowed: the
// guard protects side effects, so the caller must not proceed on an unknown
// claim state.
func (g *Guard) FirstTime(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = g.ttl
	}
	ok, err := g.redis.SetNX(ctx, KeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim failed for %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the key can be processed again (used when a
// claimed operation could not even be attempted).
func (g *Guard) Release(ctx context.Context, key string) error {
	return g.redis.Del(ctx, KeyPrefix+key).Err()
}
