package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPermissionTTL is how long a role's permission set is trusted before reloading.
const DefaultPermissionTTL = 5 * time.Minute

// PermissionCache stores permission codes per role name.
type PermissionCache interface {
	Get(ctx context.Context, roleName string) ([]string, bool)
	Set(ctx context.Context, roleName string, codes []string)
	// Invalidate drops one role, or every role when roleName is empty.
	Invalidate(ctx context.Context, roleName string)
}

type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// MemoryPermissionCache is a per-process TTL cache.
type MemoryPermissionCache struct {
	entries sync.Map // roleName -> permCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPermissionCache(ttl time.Duration) *MemoryPermissionCache {
	return &MemoryPermissionCache{ttl: ttl, now: time.Now}
}

func (c *MemoryPermissionCache) Get(_ context.Context, roleName string) ([]string, bool) {
	entry, ok := c.entries.Load(roleName)
	if !ok {
		return nil, false
	}
	cached := entry.(permCacheEntry)
	if !c.now().Before(cached.expiresAt) {
		c.entries.Delete(roleName)
		return nil, false
	}
	return cached.codes, true
}

func (c *MemoryPermissionCache) Set(_ context.Context, roleName string, codes []string) {
	c.entries.Store(roleName, permCacheEntry{codes: codes, expiresAt: c.now().Add(c.ttl)})
}

func (c *MemoryPermissionCache) Invalidate(_ context.Context, roleName string) {
	if roleName != "" {
		c.entries.Delete(roleName)
		return
	}
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})
}

const redisPermPrefix = "painai:perms:"

// RedisPermissionCache shares permission sets between server instances. Redis failures are logged
// and treated as cache misses.
type RedisPermissionCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisPermissionCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisPermissionCache {
	return &RedisPermissionCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *RedisPermissionCache) Get(ctx context.Context, roleName string) ([]string, bool) {
	raw, err := c.rdb.Get(ctx, redisPermPrefix+roleName).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Permission cache read failed", zap.String("role", roleName), zap.Error(err))
		}
		return nil, false
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		c.log.Warn("Permission cache entry is corrupt", zap.String("role", roleName), zap.Error(err))
		return nil, false
	}
	return codes, true
}

func (c *RedisPermissionCache) Set(ctx context.Context, roleName string, codes []string) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisPermPrefix+roleName, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Permission cache write failed", zap.String("role", roleName), zap.Error(err))
	}
}

func (c *RedisPermissionCache) Invalidate(ctx context.Context, roleName string) {
	if roleName != "" {
		if err := c.rdb.Del(ctx, redisPermPrefix+roleName).Err(); err != nil {
			c.log.Warn("Permission cache invalidation failed", zap.String("role", roleName), zap.Error(err))
		}
		return
	}

	iter := c.rdb.Scan(ctx, 0, redisPermPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("Permission cache flush failed", zap.Error(err))
	}
}
