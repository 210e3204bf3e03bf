// Package sources holds what the data aggregators share: the uniform result type, the
// normalized feed item, cache wrapping and the join-all fan-out.
package sources

import (
	"context"
	"time"

	"portfolio-api/internal/common/cache"
)

// Status is the terminal state of one fetch
type Status string

const (
	// StatusFresh means every provider answered
	StatusFresh Status = "fresh"
	// StatusDegraded means a fallback produced the value
	StatusDegraded Status = "degraded"
	// StatusFailed means there is no value
	StatusFailed Status = "failed"
)

// Result is what every aggregator returns. Fresh and degraded results carry a value and
// are cached; failed results carry Err and are not.
type Result[T any] struct {
	Status    Status    `json:"status"`
	Value     T         `json:"value"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
	Err       error     `json:"-"`
}

// Fresh wraps a value produced by the primary path
func Fresh[T any](value T) Result[T] {
	return Result[T]{Status: StatusFresh, Value: value, FetchedAt: time.Now().UTC()}
}

// Degraded wraps a value produced by a fallback
func Degraded[T any](value T, reason string) Result[T] {
	return Result[T]{Status: StatusDegraded, Value: value, Reason: reason, FetchedAt: time.Now().UTC()}
}

// Failed carries the error of a fetch that produced nothing
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Reason: err.Error(), FetchedAt: time.Now().UTC(), Err: err}
}

// OK reports whether the result has a usable value
func (r Result[T]) OK() bool {
	return r.Status != StatusFailed
}

// IsDegraded reports whether the value came from a fallback
func (r Result[T]) IsDegraded() bool {
	return r.Status == StatusDegraded
}

// Cached serves key from c, running fetch on a miss. Failed fetches are not written.
func Cached[T any](ctx context.Context, c *cache.Cache, key string, ttl time.Duration, fetch func(context.Context) Result[T]) Result[T] {
	return cached(ctx, key, fetch, func(compute func(context.Context) (Result[T], error)) (Result[T], error) {
		return cache.GetOrSet(ctx, c, key, ttl, compute)
	})
}

// Refresh runs fetch and overwrites key, leaving the entry alone when fetch fails
func Refresh[T any](ctx context.Context, c *cache.Cache, key string, ttl time.Duration, fetch func(context.Context) Result[T]) Result[T] {
	return cached(ctx, key, fetch, func(compute func(context.Context) (Result[T], error)) (Result[T], error) {
		return cache.Refresh(ctx, c, key, ttl, compute)
	})
}

func cached[T any](ctx context.Context, key string, fetch func(context.Context) Result[T], run func(func(context.Context) (Result[T], error)) (Result[T], error)) Result[T] {
	result, err := run(func(ctx context.Context) (Result[T], error) {
		r := fetch(ctx)
		if !r.OK() {
			return r, r.Err
		}
		return r, nil
	})
	if err != nil {
		return Failed[T](err)
	}
	return result
}
