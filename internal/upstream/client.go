// Package upstream is the outbound HTTP client used to reach third-party data providers.
//
// Every call names its provider. Each provider gets its own circuit breaker and request
// throttle, so a failing or slow provider cannot drag the others down. Calls carry an
// explicit timeout and transient failures (transport errors and 5xx) are retried once.
package upstream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfolio-api/internal/circuitbreaker"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/utils"
)

const maxBodyBytes = 5 << 20

// Config holds upstream client configuration
type Config struct {
	// Timeout applies to calls that do not pass their own
	Timeout time.Duration
	// RequestsPerSecond throttles each provider. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Retry             utils.RetryConfig
	Breaker           circuitbreaker.Config
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           8 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
		UserAgent:         "portfolio-api/1.0",
		Retry:             utils.DefaultRetryConfig(),
		Breaker:           circuitbreaker.DefaultConfig(),
	}
}

// Request describes one GET call
type Request struct {
	// Provider names the breaker and throttle the call goes through
	Provider string
	URL      string
	Headers  map[string]string
	// Timeout overrides Config.Timeout when positive
	Timeout time.Duration
}

// Client makes provider calls with a per-provider throttle, circuit breaker and
// retry. It is safe for concurrent use.
type Client struct {
	http     *http.Client
	config   Config
	breakers *circuitbreaker.Manager
	logger   logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a client. httpClient may be nil.
func New(config Config, httpClient *http.Client, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Component("upstream")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		http:     httpClient,
		config:   config,
		breakers: circuitbreaker.NewManager(config.Breaker, logger),
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetJSON performs the request and decodes a 2xx JSON body into dest
func (c *Client) GetJSON(ctx context.Context, req Request, dest interface{}) error {
	body, err := c.Get(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return errors.UpstreamError(req.Provider, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Get performs the request and returns the body of a 2xx response. Any other outcome is
// an UpstreamError, TimeoutError or a breaker rejection.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	log := c.logger.WithContext(ctx).WithFields(logging.String("provider", req.Provider))

	if err := c.throttle(ctx, req.Provider); err != nil {
		return nil, errors.TimeoutError(req.Provider+" throttle", err)
	}

	retry := c.config.Retry
	retry.RetryableErrors = retryable

	var body []byte
	err := utils.RetryWithBackoff(ctx, retry, func() error {
		return c.breakers.Execute(req.Provider, func() error {
			var callErr error
			body, callErr = c.do(ctx, req)
			return callErr
		})
	})

	if err != nil {
		var appErr *errors.AppError
		if ctx.Err() == context.DeadlineExceeded && !stderrors.As(err, &appErr) {
			err = errors.TimeoutError(req.Provider+" request", err)
		}
		log.Warn("Upstream call failed",
			logging.Duration("duration", time.Since(start)),
			logging.Err(err),
		)
		return nil, err
	}

	log.Debug("Upstream call succeeded",
		logging.Duration("duration", time.Since(start)),
		logging.Int("bytes", len(body)),
	)
	return body, nil
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid %s url", req.Provider))
	}

	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.TimeoutError(req.Provider+" request", err)
		}
		return nil, errors.ConnectionError(fmt.Sprintf("%s request failed", req.Provider), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("%s response read failed", req.Provider), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.UpstreamError(req.Provider, resp.StatusCode, nil)
	}
	return body, nil
}

func (c *Client) throttle(ctx context.Context, provider string) error {
	if c.config.RequestsPerSecond <= 0 {
		return nil
	}

	c.mu.Lock()
	limiter, ok := c.limiters[provider]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.config.RequestsPerSecond), c.config.Burst)
		c.limiters[provider] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}

// Breakers reports the state of every provider breaker
func (c *Client) Breakers() []circuitbreaker.Stats {
	return c.breakers.AllStats()
}

// retryable is true for transport failures and 5xx answers
func retryable(err error) bool {
	if stderrors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return true
	}

	switch appErr.Type {
	case errors.ErrTypeConnection:
		return true
	case errors.ErrTypeUpstream:
		status, _ := appErr.Context["status"].(int)
		return status >= 500
	}
	return false
}
