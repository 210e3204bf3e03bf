package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in-process with patrickmn/go-cache. Counters are
// guarded by a mutex so Incr and IncrWindow stay atomic within the process.
type MemoryStore struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

// NewMemoryStore creates an in-memory store purging expired keys every cleanupInterval
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("memory store: unexpected value type %T for %s", v, key)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(key, append([]byte(nil), value...), expiration(ttl))
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := s.cache.Add(key, append([]byte(nil), value...), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exp, found := s.cache.GetWithExpiration(key)
	if !found {
		s.cache.Set(key, []byte("1"), gocache.NoExpiration)
		return 1, nil
	}

	n, err := parseCounter(key, v)
	if err != nil {
		return 0, err
	}
	n++

	ttl := gocache.NoExpiration
	if !exp.IsZero() {
		ttl = time.Until(exp)
	}
	s.cache.Set(key, []byte(strconv.FormatInt(n, 10)), ttl)
	return n, nil
}

func (s *MemoryStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exp, found := s.cache.GetWithExpiration(key)
	remaining := time.Until(exp)
	if !found || exp.IsZero() || remaining <= 0 {
		s.cache.Set(key, []byte("1"), window)
		return 1, window, nil
	}

	n, err := parseCounter(key, v)
	if err != nil {
		return 0, 0, err
	}
	n++
	s.cache.Set(key, []byte(strconv.FormatInt(n, 10)), remaining)
	return n, remaining, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}

func parseCounter(key string, v interface{}) (int64, error) {
	data, ok := v.([]byte)
	if !ok {
		return 0, fmt.Errorf("memory store: unexpected value type %T for %s", v, key)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memory store: %s is not an integer: %w", key, err)
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
