package urlcache

import (
	"context"
	"sync"

	"github.com/bodyforce/admin-api/internal/ports/out/urlcache"
)

// Cache is a process-local urlcache.Cache. Entries live until deleted.
type Cache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewCache() *Cache {
	return &Cache{m: make(map[string]string)}
}

func (c *Cache) Get(ctx context.Context, bucket, path string) (string, bool, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[urlcache.Key(bucket, path)]
	return v, ok, nil
}

func (c *Cache) Set(ctx context.Context, bucket, path, url string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[urlcache.Key(bucket, path)] = url
	return nil
}

func (c *Cache) Delete(ctx context.Context, bucket, path string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, urlcache.Key(bucket, path))
	return nil
}
