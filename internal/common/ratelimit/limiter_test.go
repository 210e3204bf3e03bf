package ratelimit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/kvstore"
)

func setupLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	store, err := kvstore.NewRedisStore(&kvstore.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(store, logging.NewNopLogger()), mr
}

type downStore struct {
	kvstore.Store
}

func (downStore) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, stderrors.New("connection refused")
}

func TestLimiter_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to max then denies", func(t *testing.T) {
		limiter, _ := setupLimiter(t)

		for i := 1; i <= Contact.MaxRequests; i++ {
			result, err := limiter.Check(ctx, "1.2.3.4", Contact)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d", i)
			assert.Equal(t, Contact.MaxRequests-i, result.Remaining)
			assert.Equal(t, 5, result.Limit)
		}

		result, err := limiter.Check(ctx, "1.2.3.4", Contact)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.ResetTime, 2*time.Second)
	})

	t.Run("window expiry starts a new window", func(t *testing.T) {
		limiter, mr := setupLimiter(t)
		policy := Policy{Name: "test", MaxRequests: 2, Window: time.Minute}

		for i := 0; i < 3; i++ {
			_, _ = limiter.Check(ctx, "1.2.3.4", policy)
		}

		mr.FastForward(61 * time.Second)

		result, err := limiter.Check(ctx, "1.2.3.4", policy)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1, result.Remaining)
	})

	t.Run("keys are isolated per client and policy", func(t *testing.T) {
		limiter, mr := setupLimiter(t)
		policy := Policy{Name: "test", MaxRequests: 1, Window: time.Minute}

		first, _ := limiter.Check(ctx, "1.1.1.1", policy)
		other, _ := limiter.Check(ctx, "2.2.2.2", policy)
		feedback, _ := limiter.Check(ctx, "1.1.1.1", Feedback)

		assert.True(t, first.Allowed)
		assert.True(t, other.Allowed)
		assert.True(t, feedback.Allowed)
		assert.True(t, mr.Exists("ratelimit:test:1.1.1.1"))
		assert.True(t, mr.Exists("ratelimit:feedback:1.1.1.1"))
	})

	t.Run("concurrent requests never exceed max", func(t *testing.T) {
		limiter, _ := setupLimiter(t)
		policy := Policy{Name: "burst", MaxRequests: 5, Window: time.Minute}

		var mu sync.Mutex
		var wg sync.WaitGroup
		allowed := 0

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := limiter.Check(ctx, "9.9.9.9", policy)
				if assert.NoError(t, err) && result.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, allowed)
	})

	t.Run("disabled limiter allows everything", func(t *testing.T) {
		limiter, mr := setupLimiter(t)
		limiter.SetEnabled(false)

		for i := 0; i < 10; i++ {
			result, err := limiter.Check(ctx, "1.2.3.4", Contact)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}
		assert.False(t, mr.Exists("ratelimit:contact:1.2.3.4"))
	})

	t.Run("store outage fails open", func(t *testing.T) {
		limiter := New(downStore{}, logging.NewNopLogger())

		result, err := limiter.Check(ctx, "1.2.3.4", Contact)
		assert.True(t, errors.IsType(err, errors.ErrTypeStore))
		assert.True(t, result.Allowed)
	})

	t.Run("store outage fails closed for upload", func(t *testing.T) {
		limiter := New(downStore{}, logging.NewNopLogger())

		result, err := limiter.Check(ctx, "1.2.3.4", Upload)
		assert.Error(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
	})
}

func TestPolicies(t *testing.T) {
	for _, p := range []Policy{Contact, Feedback, Upload, UploadStatus} {
		assert.NoError(t, p.Validate(), p.Name)
	}
	assert.True(t, Upload.FailClosed)
	assert.False(t, Contact.FailClosed)
	assert.Error(t, Policy{Name: "x", Window: time.Minute}.Validate())
	assert.Error(t, Policy{Name: "x", MaxRequests: 1}.Validate())
	assert.Error(t, Policy{MaxRequests: 1, Window: time.Minute}.Validate())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		devMode   bool
		want      string
	}{
		{"single address", "203.0.113.7", false, "203.0.113.7"},
		{"first hop only", "203.0.113.7, 10.0.0.1", false, "203.0.113.7"},
		{"missing header", "", false, "unknown"},
		{"missing header in dev", "", true, "127.0.0.1"},
		{"ipv6 rejected", "2001:db8::1", false, "unknown"},
		{"octet out of range", "256.1.1.1", false, "unknown"},
		{"garbage", "not-an-ip", false, "unknown"},
		{"too few octets", "10.0.1", false, "unknown"},
		{"spoofed later hop ignored", "junk, 1.2.3.4", false, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.devMode))
		})
	}
}

func TestLimiter_Middleware(t *testing.T) {
	limiter, _ := setupLimiter(t)
	policy := Policy{Name: "contact", MaxRequests: 2, Window: 15 * time.Minute}

	handler := limiter.Middleware(policy, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.4")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("RateLimit-Remaining"))

	send()
	denied := send()

	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "0", denied.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))

	reset, err := time.Parse(time.RFC3339, denied.Header().Get("RateLimit-Reset"))
	require.NoError(t, err)
	assert.True(t, reset.After(time.Now()))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(denied.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "too many contact requests, please try again later", body["error"])
}

func TestLimiter_MiddlewareRejectsInvalidPolicy(t *testing.T) {
	limiter, _ := setupLimiter(t)

	assert.Panics(t, func() {
		limiter.Middleware(Policy{Name: "broken", Window: time.Minute}, false)
	})
	assert.NotPanics(t, func() {
		limiter.Middleware(Contact, false)
	})
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Now()
	r := &Result{ResetTime: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2*time.Second, r.RetryAfter(now))

	r = &Result{ResetTime: now.Add(-time.Second)}
	assert.Equal(t, time.Duration(0), r.RetryAfter(now))
}
