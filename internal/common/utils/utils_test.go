package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRequestID())
}

func TestRequestIDOrNew(t *testing.T) {
	assert.Equal(t, "abc-123", RequestIDOrNew("abc-123"))

	generated := RequestIDOrNew("bad id\nwith newline")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	_, err = uuid.Parse(RequestIDOrNew(""))
	assert.NoError(t, err)
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("succeeds after a failure", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, fastRetry(3), func() error {
			calls++
			if calls < 2 {
				return boom
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, fastRetry(3), func() error {
			calls++
			return boom
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		cfg := fastRetry(5)
		cfg.RetryableErrors = func(err error) bool { return false }

		calls := 0
		err := RetryWithBackoff(ctx, cfg, func() error {
			calls++
			return boom
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		cfg := fastRetry(3)
		cfg.InitialDelay = time.Second
		err := RetryWithBackoff(cctx, cfg, func() error { return boom })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		_ = RetryWithBackoff(ctx, RetryConfig{}, func() error {
			calls++
			return nil
		})
		assert.Equal(t, 1, calls)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5m", 5 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{" 10s ", 10 * time.Second, false},
		{"d", 0, true},
		{"xd", 0, true},
		{"3y", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
