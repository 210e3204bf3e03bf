// Package blog aggregates the author's posts from every blogging platform.
package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/sources/feed"
)

const (
	PlatformAll    = "all"
	PlatformMedium = "medium"
	PlatformDevto  = "devto"
)

// Platform is one blogging platform and the feed it publishes
type Platform struct {
	Name    string
	FeedURL string
}

// Aggregator merges posts from the configured blog platforms
type Aggregator struct {
	bridge    *feed.Bridge
	cache     *cache.Cache
	platforms []Platform
	logger    logging.Logger
}

// New creates a blog aggregator over the given platforms, in display order
func New(bridge *feed.Bridge, c *cache.Cache, platforms []Platform, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Component("blog")
	}
	return &Aggregator{bridge: bridge, cache: c, platforms: platforms, logger: logger}
}

// Fetch returns the posts of one platform, or of every platform when platform is empty
// or "all". Unknown platforms are a validation failure.
func (a *Aggregator) Fetch(ctx context.Context, platform string) sources.Result[[]sources.Item] {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" || platform == PlatformAll {
		return sources.Cached(ctx, a.cache, cache.BlogAllKey, cache.TTLLong, a.fetchAll)
	}

	p, ok := a.platform(platform)
	if !ok {
		return sources.Failed[[]sources.Item](errors.ValidationError(fmt.Sprintf("unknown blog platform %q", platform)))
	}

	return sources.Cached(ctx, a.cache, cache.BlogKey(p.Name), cache.TTLLong, func(ctx context.Context) sources.Result[[]sources.Item] {
		return a.fetch(ctx, []Platform{p})
	})
}

// Warm recomputes the combined feed regardless of what is cached
func (a *Aggregator) Warm(ctx context.Context) error {
	r := sources.Refresh(ctx, a.cache, cache.BlogAllKey, cache.TTLLong, a.fetchAll)
	return r.Err
}

func (a *Aggregator) fetchAll(ctx context.Context) sources.Result[[]sources.Item] {
	return a.fetch(ctx, a.platforms)
}

func (a *Aggregator) fetch(ctx context.Context, platforms []Platform) sources.Result[[]sources.Item] {
	tasks := make([]sources.Task, 0, len(platforms))
	for _, p := range platforms {
		p := p
		tasks = append(tasks, sources.Task{
			Name: p.Name,
			Fetch: func(ctx context.Context) ([]sources.Item, error) {
				return a.bridge.Fetch(ctx, p.Name, p.FeedURL)
			},
		})
	}

	results, failed := sources.Gather(ctx, tasks, a.logger)

	posts := sources.Merge(results)

	if len(posts) == 0 {
		a.logger.WithContext(ctx).Warn("No blog posts from any platform, serving fallback",
			logging.Any("failed", failed),
		)
		return sources.Degraded(Fallback(), "no posts available from any platform")
	}

	sources.SortByDate(posts)

	// a partial answer is still fresh: no fallback data was mixed in
	result := sources.Fresh(posts)
	if len(failed) > 0 {
		result.Reason = "unavailable: " + strings.Join(failed, ", ")
	}
	return result
}

func (a *Aggregator) platform(name string) (Platform, bool) {
	return lo.Find(a.platforms, func(p Platform) bool { return p.Name == name })
}

// Fallback is served when no platform answers
func Fallback() []sources.Item {
	return []sources.Item{
		{
			Title:       "Building resilient APIs with caching and fallbacks",
			Link:        "https://dev.to",
			Description: "How layered caching, circuit breakers and static fallbacks keep a small site responsive when its data providers are not.",
			PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Source:      PlatformDevto,
			Categories:  []string{"architecture", "go"},
		},
		{
			Title:       "Rate limiting without the headaches",
			Link:        "https://medium.com",
			Description: "Fixed windows, sliding windows and token buckets compared, with notes on running them against a shared store.",
			PublishedAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Source:      PlatformMedium,
			Categories:  []string{"backend"},
		},
		{
			Title:       "Notes on concurrency in Go",
			Link:        "https://dev.to",
			Description: "Goroutines, errgroup and context cancellation in everyday service code.",
			PublishedAt: time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC),
			Source:      PlatformDevto,
			Categories:  []string{"go", "concurrency"},
		},
	}
}
