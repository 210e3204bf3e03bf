package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/kvstore"
)

// Cache is the facade over a kvstore.Store
type Cache struct {
	store  kvstore.Store
	logger logging.Logger
}

// New creates a cache facade. A nil logger falls back to the global logger.
func New(store kvstore.Store, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Component("cache")
	}
	return &Cache{store: store, logger: logger}
}

// Get decodes the value at key into dest. It reports false when the key is absent or
// holds an empty/null value. Store errors are returned so callers can decide.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if isEmpty(data) {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value JSON-encoded under key for ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

// Delete removes a single key
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// DeletePattern removes every key starting with prefix
func (c *Cache) DeletePattern(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("refusing to delete with an empty prefix")
	}

	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	c.logger.Info("Invalidating cache keys",
		logging.String("prefix", prefix),
		logging.Int("count", len(keys)),
	)
	return c.store.Delete(ctx, keys...)
}

// GetOrSet returns the cached value at key, or runs compute, stores its result for ttl
// and returns it. compute runs at most once per call; concurrent callers on a cold key
// may each run it.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := c.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithContext(ctx).Warn("Cache read failed, treating as miss",
			logging.String("key", key),
			logging.Err(err),
		)
	}
	if found {
		return cached, nil
	}

	return Refresh(ctx, c, key, ttl, compute)
}

// Refresh runs compute and overwrites key with the result. A compute error is returned
// and leaves the existing entry untouched.
func Refresh[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.logger.WithContext(ctx).Warn("Cache write failed, serving uncached value",
			logging.String("key", key),
			logging.Duration("ttl", ttl),
			logging.Err(err),
		)
	}
	return value, nil
}

// Ping checks the backing store
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func isEmpty(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}
