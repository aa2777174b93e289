package urlcache

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/adapters/contracttest"
	urlcacheport "github.com/bodyforce/admin-api/internal/ports/out/urlcache"
)

func TestContract_RedisURLCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis tests")
	}

	contracttest.RunURLCache(t, func(t *testing.T) (urlcacheport.Cache, func()) {
		t.Helper()
		c, err := NewCache(context.Background(), Config{Addr: addr, Prefix: "test:" + uuid.NewString() + ":"})
		if err != nil {
			t.Fatalf("NewCache: %v", err)
		}
		return c, func() { _ = c.Close() }
	})
}

func TestNewCacheFromClient_DefaultPrefix(t *testing.T) {
	t.Parallel()

	c := NewCacheFromClient(nil, "", 0)
	if got := c.key("documents", "a/b.pdf"); got != "bodyforce:url:documents/a/b.pdf" {
		t.Fatalf("key()=%q", got)
	}
}
