package urlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bodyforce/admin-api/internal/ports/out/urlcache"
)

// Config holds the connection settings for the Redis URL cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys; defaults to "bodyforce:url:".
	Prefix string
	// TTL bounds entry lifetime. Zero keeps entries until deleted.
	TTL time.Duration
}

// Cache is a urlcache.Cache shared between API replicas through Redis.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewCacheFromClient(rdb, cfg.Prefix, cfg.TTL), nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "bodyforce:url:"
	}
	return &Cache{client: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(bucket, path string) string {
	return c.prefix + urlcache.Key(bucket, path)
}

func (c *Cache) Get(ctx context.Context, bucket, path string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(bucket, path)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *Cache) Set(ctx context.Context, bucket, path, url string) error {
	if err := c.client.Set(ctx, c.key(bucket, path), url, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, bucket, path string) error {
	if err := c.client.Del(ctx, c.key(bucket, path)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
