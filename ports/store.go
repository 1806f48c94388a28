package ports

import (
	"context"
	"time"
)

// Cache stores short-lived string values, such as fetched secrets
type Cache interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
