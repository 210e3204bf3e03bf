package kvstore

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(&RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

// storeContract runs the behaviour every backend must share
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "blog:all", []byte(`{"items":[]}`), time.Minute))
		got, err := store.Get(ctx, "blog:all")
		require.NoError(t, err)
		assert.Equal(t, `{"items":[]}`, string(got))
	})

	t.Run("setnx only writes once", func(t *testing.T) {
		ok, err := store.SetNX(ctx, "visitors:total", []byte("100"), 0)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.SetNX(ctx, "visitors:total", []byte("5"), 0)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.Get(ctx, "visitors:total")
		require.NoError(t, err)
		assert.Equal(t, "100", string(got))
	})

	t.Run("incr creates and increments", func(t *testing.T) {
		n, err := store.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.Incr(ctx, "visitors:total")
		require.NoError(t, err)
		assert.Equal(t, int64(101), n)
	})

	t.Run("keys by prefix and delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "session:a", []byte("1"), time.Minute))
		require.NoError(t, store.Set(ctx, "session:b", []byte("1"), time.Minute))
		require.NoError(t, store.Set(ctx, "sessions-other", []byte("1"), time.Minute))

		keys, err := store.Keys(ctx, "session:")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"session:a", "session:b"}, keys)

		require.NoError(t, store.Delete(ctx, keys...))
		keys, err = store.Keys(ctx, "session:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("incr window counts within window", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			n, ttl, err := store.IncrWindow(ctx, "ratelimit:contact:1.2.3.4", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, n)
			assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %v", ttl)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestRedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	storeContract(t, store)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	storeContract(t, store)
}

func TestNewRedisStore(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		store, err := NewRedisStore(nil)
		assert.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "redis config is required")
	})

	t.Run("connection failure", func(t *testing.T) {
		store, err := NewRedisStore(&RedisConfig{Address: "127.0.0.1:1"})
		assert.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("sets default pool size", func(t *testing.T) {
		mr := miniredis.RunT(t)
		config := &RedisConfig{Address: mr.Addr()}
		store, err := NewRedisStore(config)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, 10, config.PoolSize)
	})
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "weather:40.71:-74.00", []byte(`{"temp":20}`), 5*time.Minute))
	mr.FastForward(5*time.Minute + time.Second)

	_, err := store.Get(ctx, "weather:40.71:-74.00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_IncrWindowResetsAfterExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	n, _, err := store.IncrWindow(ctx, "ratelimit:feedback:9.9.9.9", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, _, err = store.IncrWindow(ctx, "ratelimit:feedback:9.9.9.9", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mr.FastForward(time.Minute + time.Millisecond)

	n, ttl, err := store.IncrWindow(ctx, "ratelimit:feedback:9.9.9.9", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, ttl)
}

func TestRedisStore_IncrWindowArmsMissingExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("ratelimit:upload:1.1.1.1", "4"))

	n, ttl, err := store.IncrWindow(ctx, "ratelimit:upload:1.1.1.1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, time.Hour, ttl)
	assert.Equal(t, time.Hour, mr.TTL("ratelimit:upload:1.1.1.1"))
}

func TestMemoryStore_IncrWindowResetsAfterExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	n, _, err := store.IncrWindow(ctx, "ratelimit:contact:1.1.1.1", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	time.Sleep(50 * time.Millisecond)

	n, ttl, err := store.IncrWindow(ctx, "ratelimit:contact:1.1.1.1", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 30*time.Millisecond, ttl)
}
