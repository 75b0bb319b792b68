// Package cache provides a byte cache (Redis or in-process) and a read-through
// decorator for the prediction store.
package cache

import (
	"context"
	"time"
)

// Store is a TTL byte cache. A ttl <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
