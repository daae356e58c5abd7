package cache

import (
	"context"
	"time"
)

// Store is a key-value cache with per-entry expiry. Entries are opaque
// bytes; callers handle their own serialisation. A missing or expired
// key is reported through the ok flag, not as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
