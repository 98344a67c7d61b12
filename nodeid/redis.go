package nodeid

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compare-and-act scripts so a process never touches a lease it no longer owns.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
)

// RedisStore is a Store backed by Redis. Works with a single node, Sentinel or
// Cluster client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("nodeid: redis %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

// Acquire implements Store with SET NX PX.
func (s *RedisStore) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, owner, ttl).Result()
}

// Renew implements Store.
func (s *RedisStore) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, s.client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{key}, owner).Err()
}

// Active lists node IDs currently leased under prefix, sorted ascending.
func (s *RedisStore) Active(ctx context.Context, prefix string) ([]int64, error) {
	var ids []int64

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id, err := strconv.ParseInt(strings.TrimPrefix(iter.Val(), prefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	slices.Sort(ids)
	return ids, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
