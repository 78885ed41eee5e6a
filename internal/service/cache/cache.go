package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a string key-value cache. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value with ttl; ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Close() error
}

var ErrMiss = errors.New("cache: miss")
