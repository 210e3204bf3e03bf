// Package kvstore is the key-value store client shared by the cache facade, the rate
// limiter and the visitor tracker. Two backends exist: Redis for multi-instance
// deployments and an in-process go-cache store for single-instance and development runs.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the contract every backend implements. A ttl <= 0 means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Keys lists live keys starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Incr atomically increments an integer key, creating it at 1 without expiry
	Incr(ctx context.Context, key string) (int64, error)
	// IncrWindow atomically increments a counter whose expiry is set to window on
	// creation only, and returns the new count and the time left before expiry.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
	Close() error
}
