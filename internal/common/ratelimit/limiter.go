package ratelimit

import (
	"context"
	"time"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/kvstore"
)

// Result is the outcome of one check
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// RetryAfter is the time left until the window resets, rounded up to a whole second
func (r *Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetTime.Sub(now)
	if d <= 0 {
		return 0
	}
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}

// Limiter enforces fixed-window request quotas stored in the shared store
type Limiter struct {
	store   kvstore.Store
	logger  logging.Logger
	enabled bool
	now     func() time.Time
}

// New creates an enabled limiter over store
func New(store kvstore.Store, logger logging.Logger) *Limiter {
	if logger == nil {
		logger = logging.Component("ratelimit")
	}
	return &Limiter{
		store:   store,
		logger:  logger,
		enabled: true,
		now:     time.Now,
	}
}

// SetEnabled turns enforcement on or off. A disabled limiter allows everything.
func (l *Limiter) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Check counts one request for key under policy. The returned error is non-nil only when
// the store failed; the Result is still usable and reflects the policy's failure mode.
func (l *Limiter) Check(ctx context.Context, key string, policy Policy) (*Result, error) {
	now := l.now()

	if !l.enabled {
		return &Result{
			Allowed:   true,
			Limit:     policy.MaxRequests,
			Remaining: policy.MaxRequests,
			ResetTime: now.Add(policy.Window),
		}, nil
	}

	count, ttl, err := l.store.IncrWindow(ctx, cache.RateLimitKey(policy.Name, key), policy.Window)
	if err != nil {
		result := &Result{
			Allowed:   !policy.FailClosed,
			Limit:     policy.MaxRequests,
			ResetTime: now.Add(policy.Window),
		}
		if result.Allowed {
			result.Remaining = policy.MaxRequests
		}

		l.logger.WithContext(ctx).Warn("Rate limit store unavailable",
			logging.String("policy", policy.Name),
			logging.Bool("fail_closed", policy.FailClosed),
			logging.Err(err),
		)
		return result, errors.StoreError("rate limit check", err)
	}

	if ttl <= 0 || ttl > policy.Window {
		ttl = policy.Window
	}

	result := &Result{
		Limit:     policy.MaxRequests,
		ResetTime: now.Add(ttl),
	}

	if count <= int64(policy.MaxRequests) {
		result.Allowed = true
		result.Remaining = policy.MaxRequests - int(count)
	}

	return result, nil
}
