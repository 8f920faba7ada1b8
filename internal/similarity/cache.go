package similarity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores skill variations. Entries are never invalidated.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, variations []string)
}

// MemoryCache is a process-local cache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), v...), true
}

func (c *MemoryCache) Set(_ context.Context, key string, variations []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]string(nil), variations...)
}

// Len reports the number of cached keys.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache keeps variations in Redis as JSON arrays so several engine
// processes share one vocabulary. Errors are logged and treated as misses.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	logger *zap.Logger
}

func NewRedisCache(rdb redis.Cmdable, prefix string, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "smartrecruit"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, logger: logger}
}

// ConnectRedis parses url and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

func (c *RedisCache) key(key string) string {
	return c.prefix + ":variations:" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var variations []string
	if err := json.Unmarshal(data, &variations); err != nil {
		c.logger.Debug("redis cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return variations, true
}

func (c *RedisCache) Set(ctx context.Context, key string, variations []string) {
	data, err := json.Marshal(variations)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), data, 0).Err(); err != nil {
		c.logger.Debug("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Tiered reads L1 first, then L2. An L2 hit populates L1; writes go to both.
type Tiered struct {
	l1, l2 Cache
}

func NewTiered(l1, l2 Cache) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]string, bool) {
	if v, ok := t.l1.Get(ctx, key); ok {
		return v, true
	}
	if t.l2 == nil {
		return nil, false
	}
	v, ok := t.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	t.l1.Set(ctx, key, v)
	return v, true
}

func (t *Tiered) Set(ctx context.Context, key string, variations []string) {
	t.l1.Set(ctx, key, variations)
	if t.l2 != nil {
		t.l2.Set(ctx, key, variations)
	}
}
