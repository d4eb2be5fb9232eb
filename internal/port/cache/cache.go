// Package cache defines the port interface for the editor read cache.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching of file content.
// Implementations may evict entries at any time; a miss is never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every cached value. Used after bulk rewrites and restores.
	Clear()
}
