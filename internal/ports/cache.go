package ports

import (
	"context"
	"time"
)

// Cache is a small key-value store for run bookkeeping such as the last
// outcome per source. A zero ttl keeps the entry until it is overwritten.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys lists live keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
