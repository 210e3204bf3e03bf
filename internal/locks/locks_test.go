package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolio-api/internal/common/errors"
)

func TestRedsyncLocker(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: s.Addr()})
	defer client.Close()

	locker, err := NewRedsyncLocker(client)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, "warmer", 30*time.Second)
		require.NoError(t, err)

		assert.Equal(t, "warmer", lock.Key())
		assert.True(t, lock.IsHeld())
		assert.True(t, s.Exists("lock:warmer"))

		require.NoError(t, lock.Release(ctx))
		assert.False(t, lock.IsHeld())
		assert.False(t, s.Exists("lock:warmer"))

		// second release is a no-op
		assert.NoError(t, lock.Release(ctx))
	})

	t.Run("contention fails fast", func(t *testing.T) {
		lock1, err := locker.Acquire(ctx, "contended", 30*time.Second)
		require.NoError(t, err)
		defer lock1.Release(ctx)

		start := time.Now()
		lock2, err := locker.Acquire(ctx, "contended", 30*time.Second)
		assert.Nil(t, lock2)
		assert.True(t, errors.Is(err, ErrNotAcquired))
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("expired lock can be taken", func(t *testing.T) {
		_, err := locker.Acquire(ctx, "expiring", 10*time.Second)
		require.NoError(t, err)

		s.FastForward(11 * time.Second)

		lock, err := locker.Acquire(ctx, "expiring", 10*time.Second)
		require.NoError(t, err)
		assert.NoError(t, lock.Release(ctx))
	})
}

func TestRedsyncLocker_StoreDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()

	locker, err := NewRedsyncLocker(client)
	require.NoError(t, err)

	s.Close()

	lock, err := locker.Acquire(context.Background(), "warmer", 30*time.Second)
	assert.Nil(t, lock)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotAcquired))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStore))
}

func TestNewRedsyncLocker_RequiresClient(t *testing.T) {
	_, err := NewRedsyncLocker(nil)
	assert.Error(t, err)
}

func TestLocalLocker(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	locker := NewLocalLocker()
	locker.nowFn = func() time.Time { return now }
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "warmer", time.Minute)
	require.NoError(t, err)
	assert.True(t, lock.IsHeld())

	_, err = locker.Acquire(ctx, "warmer", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// other keys are independent
	other, err := locker.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "other", other.Key())

	now = now.Add(2 * time.Minute)
	assert.False(t, lock.IsHeld())

	relocked, err := locker.Acquire(ctx, "warmer", time.Minute)
	require.NoError(t, err)

	// releasing the stale handle must not free the new holder
	require.NoError(t, lock.Release(ctx))
	assert.True(t, relocked.IsHeld())

	require.NoError(t, relocked.Release(ctx))
	assert.False(t, relocked.IsHeld())
}
