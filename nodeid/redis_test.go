package nodeid

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
)

// redisStore connects to SEQUENCE_TEST_REDIS_ADDR or skips the test.
func redisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("SEQUENCE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SEQUENCE_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := DialRedis(ctx, addr)
	if err != nil {
		t.Fatalf("DialRedis() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_OwnerChecks(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()
	key := "sequence:test:" + uuid.NewString()
	defer store.client.Del(ctx, key)

	ok, err := store.Acquire(ctx, key, "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire(a) = %v, %v", ok, err)
	}
	if ok, _ := store.Acquire(ctx, key, "b", time.Minute); ok {
		t.Error("Acquire(b) succeeded on a held key")
	}

	if ok, err := store.Renew(ctx, key, "b", time.Minute); err != nil || ok {
		t.Errorf("Renew(b) = %v, %v; want false", ok, err)
	}
	if ok, err := store.Renew(ctx, key, "a", time.Minute); err != nil || !ok {
		t.Errorf("Renew(a) = %v, %v; want true", ok, err)
	}

	if err := store.Release(ctx, key, "b"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.client.Exists(ctx, key).Result(); n != 1 {
		t.Error("Release(b) deleted a key owned by a")
	}
	if err := store.Release(ctx, key, "a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.client.Exists(ctx, key).Result(); n != 0 {
		t.Error("Release(a) left the key in place")
	}
}

func TestRedisStore_LeaserActive(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()
	prefix := "sequence:test:" + uuid.NewString() + ":"

	a := NewLeaser(store, LeaserConfig{KeyPrefix: prefix, PoolSize: 8, TTL: 10 * time.Second})
	b := NewLeaser(store, LeaserConfig{KeyPrefix: prefix, PoolSize: 8, TTL: 10 * time.Second})

	if _, err := a.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Release(ctx)
	if _, err := b.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer b.Release(ctx)

	active, err := store.Active(ctx, prefix)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !slices.Equal(active, []int64{0, 1}) {
		t.Errorf("Active() = %v, want [0 1]", active)
	}
}
