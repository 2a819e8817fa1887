package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dermalens-server-go/internal/platform/config"
)

// Cache 分析记录的旁路读缓存。config.Redis.Addr 为空时不启用，
// 调用方拿到 nil *Cache 也可以安全调用（全部为 miss）。
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New 连接 Redis 并返回缓存实例
func New(cfg config.RedisConfig) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "dermalens:"
	}
	ttl := cfg.TTL.Std()
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (c *Cache) key(suffix string) string {
	return c.prefix + suffix
}

// Get 返回缓存值，miss 时 ok 为 false
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

// Set 写入缓存值
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, c.ttl).Err()
}

// Invalidate 删除一组缓存键
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Close 关闭底层连接
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
