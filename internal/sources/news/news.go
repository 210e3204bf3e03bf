// Package news aggregates tech headlines from a structured news API with RSS fallback.
package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/sources/feed"
	"portfolio-api/internal/upstream"
)

const (
	// DefaultAPIURL is the NewsAPI top-headlines endpoint
	DefaultAPIURL = "https://newsapi.org/v2/top-headlines"

	SourceAll = "all"

	apiProvider = "newsapi"
)

// Source is one RSS feed used when the news API is unavailable
type Source struct {
	Name    string
	FeedURL string
}

// Config holds news aggregation settings
type Config struct {
	APIKey   string
	APIURL   string
	Category string
	Sources  []Source
	// PerSourceLimit caps each RSS source's contribution
	PerSourceLimit int
	// MaxItems caps the merged list
	MaxItems int
	Timeout  time.Duration
}

// DefaultSources are well-known tech feeds
func DefaultSources() []Source {
	return []Source{
		{Name: "hackernews", FeedURL: "https://hnrss.org/frontpage"},
		{Name: "techcrunch", FeedURL: "https://techcrunch.com/feed/"},
		{Name: "theverge", FeedURL: "https://www.theverge.com/rss/index.xml"},
		{Name: "arstechnica", FeedURL: "https://feeds.arstechnica.com/arstechnica/index"},
	}
}

// Aggregator serves tech headlines from the news API, falling back to RSS feeds
type Aggregator struct {
	config Config
	client *upstream.Client
	bridge *feed.Bridge
	cache  *cache.Cache
	logger logging.Logger
}

// New creates a news aggregator
func New(config Config, client *upstream.Client, bridge *feed.Bridge, c *cache.Cache, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Component("news")
	}
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.Category == "" {
		config.Category = "technology"
	}
	if config.PerSourceLimit <= 0 {
		config.PerSourceLimit = 5
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 20
	}
	if config.Timeout <= 0 {
		config.Timeout = feed.DefaultTimeout
	}
	if len(config.Sources) == 0 {
		config.Sources = DefaultSources()
	}

	return &Aggregator{config: config, client: client, bridge: bridge, cache: c, logger: logger}
}

// Fetch returns headlines for one RSS source, or the combined headlines when source is
// empty or "all"
func (a *Aggregator) Fetch(ctx context.Context, source string) sources.Result[[]sources.Item] {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" || source == SourceAll {
		return sources.Cached(ctx, a.cache, cache.NewsKey(SourceAll), cache.TTLMedium, a.fetchAll)
	}

	src, ok := a.source(source)
	if !ok {
		return sources.Failed[[]sources.Item](errors.ValidationError(fmt.Sprintf("unknown news source %q", source)))
	}

	return sources.Cached(ctx, a.cache, cache.NewsKey(src.Name), cache.TTLMedium, func(ctx context.Context) sources.Result[[]sources.Item] {
		items := a.fetchRSS(ctx, []Source{src})
		if len(items) == 0 {
			return sources.Degraded(Fallback(), fmt.Sprintf("no headlines from %s", src.Name))
		}
		return sources.Fresh(items)
	})
}

// Warm recomputes the combined headlines regardless of what is cached
func (a *Aggregator) Warm(ctx context.Context) error {
	r := sources.Refresh(ctx, a.cache, cache.NewsKey(SourceAll), cache.TTLMedium, a.fetchAll)
	return r.Err
}

func (a *Aggregator) fetchAll(ctx context.Context) sources.Result[[]sources.Item] {
	primaryFailed := false

	if a.config.APIKey != "" {
		items, err := a.fetchAPI(ctx)
		if err == nil && len(items) > 0 {
			return sources.Fresh(items)
		}

		primaryFailed = true
		a.logger.WithContext(ctx).Warn("News API unavailable, falling back to RSS",
			logging.Err(err),
			logging.Int("items", len(items)),
		)
	}

	items := a.fetchRSS(ctx, a.config.Sources)
	if len(items) == 0 {
		return sources.Degraded(Fallback(), "no headlines from any source")
	}
	if primaryFailed {
		return sources.Degraded(items, "news api unavailable, served from rss")
	}
	return sources.Fresh(items)
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func (a *Aggregator) fetchAPI(ctx context.Context) ([]sources.Item, error) {
	query := url.Values{}
	query.Set("category", a.config.Category)
	query.Set("language", "en")
	query.Set("pageSize", fmt.Sprintf("%d", a.config.MaxItems))

	var resp apiResponse
	err := a.client.GetJSON(ctx, upstream.Request{
		Provider: apiProvider,
		URL:      a.config.APIURL + "?" + query.Encode(),
		Headers:  map[string]string{"X-Api-Key": a.config.APIKey},
		Timeout:  a.config.Timeout,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, errors.UpstreamError(apiProvider, 0, fmt.Errorf("%s: %s", resp.Code, resp.Message))
	}

	items := make([]sources.Item, 0, len(resp.Articles))
	for _, article := range resp.Articles {
		// NewsAPI marks removed articles this way
		if article.Title == "" || article.Title == "[Removed]" {
			continue
		}
		items = append(items, sources.Item{
			Title:       article.Title,
			Link:        article.URL,
			Description: feed.Summarize(article.Description, 280),
			PublishedAt: feed.ParseDate(article.PublishedAt),
			Source:      article.Source.Name,
			Author:      article.Author,
			Thumbnail:   article.URLToImage,
		})
	}

	sources.SortByDate(items)
	return sources.Limit(items, a.config.MaxItems), nil
}

func (a *Aggregator) fetchRSS(ctx context.Context, srcs []Source) []sources.Item {
	tasks := make([]sources.Task, 0, len(srcs))
	for _, src := range srcs {
		src := src
		tasks = append(tasks, sources.Task{
			Name: src.Name,
			Fetch: func(ctx context.Context) ([]sources.Item, error) {
				items, err := a.bridge.Fetch(ctx, src.Name, src.FeedURL)
				if err != nil {
					return nil, err
				}
				// feeds are usually newest first already, but not all of them
				sources.SortByDate(items)
				return sources.Limit(items, a.config.PerSourceLimit), nil
			},
		})
	}

	results, _ := sources.Gather(ctx, tasks, a.logger)

	merged := sources.Merge(results)
	sources.SortByDate(merged)
	return sources.Limit(merged, a.config.MaxItems)
}

func (a *Aggregator) source(name string) (Source, bool) {
	return lo.Find(a.config.Sources, func(s Source) bool { return s.Name == name })
}

// Fallback is served when no provider answers
func Fallback() []sources.Item {
	return []sources.Item{
		{
			Title:       "Go release notes",
			Link:        "https://go.dev/doc/devel/release",
			Description: "Release history of the Go programming language.",
			PublishedAt: time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC),
			Source:      "go.dev",
		},
		{
			Title:       "Hacker News",
			Link:        "https://news.ycombinator.com",
			Description: "Links and discussion from the tech community.",
			PublishedAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			Source:      "hackernews",
		},
		{
			Title:       "The Go Blog",
			Link:        "https://go.dev/blog",
			Description: "Articles from the Go team.",
			PublishedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Source:      "go.dev",
		},
	}
}
