package badge

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"hookwarden/internal/platform/redis"
	id "hookwarden/pkg/domain"
)

// ApprovalCache caches "is this hook program approved" answers. Get returns
// (value, found, error); a miss is not an error.
type ApprovalCache interface {
	Get(ctx context.Context, programID id.ProgramID) (approved bool, found bool, err error)
	Set(ctx context.Context, programID id.ProgramID, approved bool) error
	Invalidate(ctx context.Context, programID id.ProgramID) error
}

// NopCache misses on every read. Default when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, id.ProgramID) (bool, bool, error) { return false, false, nil }
func (NopCache) Set(context.Context, id.ProgramID, bool) error         { return nil }
func (NopCache) Invalidate(context.Context, id.ProgramID) error        { return nil }

// RedisCache stores approval answers in Redis with a TTL bound, so a stale
// approval can never outlive the TTL even if refreshes are missed.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(programID id.ProgramID) string {
	return "badge:approved:" + programID.String()
}

func (c *RedisCache) Get(ctx context.Context, programID id.ProgramID) (bool, bool, error) {
	value, err := c.client.Get(ctx, cacheKey(programID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, programID id.ProgramID, approved bool) error {
	value := "0"
	if approved {
		value = "1"
	}
	return c.client.Set(ctx, cacheKey(programID), value, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, programID id.ProgramID) error {
	return c.client.Del(ctx, cacheKey(programID)).Err()
}

// MemoryCache is the test double. No TTL; tests control contents directly.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[id.ProgramID]bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[id.ProgramID]bool)}
}

func (c *MemoryCache) Get(_ context.Context, programID id.ProgramID) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	approved, found := c.entries[programID]
	return approved, found, nil
}

func (c *MemoryCache) Set(_ context.Context, programID id.ProgramID, approved bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[programID] = approved
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, programID id.ProgramID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, programID)
	return nil
}
