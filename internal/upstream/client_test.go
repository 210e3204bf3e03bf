package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/circuitbreaker"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/utils"
)

func testClient() *Client {
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.Retry = utils.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1}
	cfg.Breaker = circuitbreaker.Config{MaxFailures: 3, Timeout: time.Minute, MaxConcurrentRequests: 1}
	return New(cfg, nil, logging.NewNopLogger())
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"London","temp":15.5}`))
	}))
	defer srv.Close()

	var out struct {
		Name string  `json:"name"`
		Temp float64 `json:"temp"`
	}
	err := testClient().GetJSON(context.Background(), Request{
		Provider: "weather",
		URL:      srv.URL,
		Headers:  map[string]string{"X-Api-Key": "secret"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "London", out.Name)
	assert.Equal(t, 15.5, out.Temp)
}

func TestClient_Non2xxIsUpstreamError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), Request{Provider: "weather", URL: srv.URL})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx is not retried")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testClient().Get(context.Background(), Request{Provider: "news", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := testClient().Get(context.Background(), Request{
		Provider: "slow",
		URL:      srv.URL,
		Timeout:  50 * time.Millisecond,
	})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestClient_BreakerOpensPerProvider(t *testing.T) {
	var calls int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer healthy.Close()

	client := testClient()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = client.Get(ctx, Request{Provider: "geoip", URL: failing.URL})
	}
	before := atomic.LoadInt32(&calls)

	_, err := client.Get(ctx, Request{Provider: "geoip", URL: failing.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, before, atomic.LoadInt32(&calls))

	_, err = client.Get(ctx, Request{Provider: "weather", URL: healthy.URL})
	assert.NoError(t, err)

	stats := client.Breakers()
	require.Len(t, stats, 2)
	assert.Equal(t, "geoip", stats[0].Name)
	assert.Equal(t, "open", stats[0].State)
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := testClient().GetJSON(context.Background(), Request{Provider: "rss", URL: srv.URL}, &out)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
}

func TestClient_Throttle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 1
	cfg.Burst = 1
	client := New(cfg, nil, logging.NewNopLogger())

	ctx := context.Background()
	_, err := client.Get(ctx, Request{Provider: "bridge", URL: srv.URL})
	require.NoError(t, err)

	// the second call cannot get a token before its deadline
	_, err = client.Get(ctx, Request{Provider: "bridge", URL: srv.URL, Timeout: 100 * time.Millisecond})
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
}
