package urlcache

import "context"

// Cache remembers resolved public URLs keyed by bucket and path.
type Cache interface {
	Get(ctx context.Context, bucket, path string) (string, bool, error)
	Set(ctx context.Context, bucket, path, url string) error
	Delete(ctx context.Context, bucket, path string) error
}

// Key is the canonical cache key for an object.
func Key(bucket, path string) string {
	return bucket + "/" + path
}
