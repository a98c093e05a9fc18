package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements RedisClient with an in-memory map
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if _, exists := f.keys[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestFirstTimeClaimsOnce(t *testing.T) {
	store := newFakeRedis()
	guard := New(store, time.Hour)
	ctx := context.Background()

	first, err := guard.FirstTime(ctx, "payment.captured:evt-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected first claim to succeed")
	}

	second, err := guard.FirstTime(ctx, "payment.captured:evt-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Error("expected second claim to report false")
	}
}

func TestFirstTimeDistinctKeysAreIndependent(t *testing.T) {
	store := newFakeRedis()
	guard := New(store, time.Hour)
	ctx := context.Background()

	for _, key := range []string{"evt-1", "evt-2", "evt-3"} {
		first, err := guard.FirstTime(ctx, key, 0)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", key, err)
		}
		if !first {
			t.Errorf("expected first claim for %s", key)
		}
	}
}

func TestFirstTimeAppliesKeyPrefixAndTTL(t *testing.T) {
	store := newFakeRedis()
	guard := New(store, 0) // falls back to DefaultTTL

	if _, err := guard.FirstTime(context.Background(), "evt-1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ttl, ok := store.keys[KeyPrefix+"evt-1"]
	if !ok {
		t.Fatalf("key not stored under prefix, stored: %v", store.keys)
	}
	if ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
	}
}

func TestFirstTimeSurfacesRedisErrors(t *testing.T) {
	store := newFakeRedis()
	store.err = errors.New("connection reset")
	guard := New(store, time.Hour)

	first, err := guard.FirstTime(context.Background(), "evt-1", 0)
	if err == nil {
		t.Fatal("expected error, guard must not fail open")
	}
	if first {
		t.Error("claim must not be reported on error")
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	store := newFakeRedis()
	guard := New(store, time.Hour)
	ctx := context.Background()

	if _, err := guard.FirstTime(ctx, "evt-1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := guard.Release(ctx, "evt-1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	first, err := guard.FirstTime(ctx, "evt-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Error("expected reclaim after release")
	}
}
