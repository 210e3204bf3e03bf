// Package app wires configuration, the store, the aggregators and the HTTP
// surface together and owns their lifecycle.
package app

import (
	"context"
	"time"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/ratelimit"
	"portfolio-api/internal/config"
	"portfolio-api/internal/kvstore"
	"portfolio-api/internal/locks"
	"portfolio-api/internal/notify"
	"portfolio-api/internal/security"
	"portfolio-api/internal/sources/blog"
	"portfolio-api/internal/sources/feed"
	"portfolio-api/internal/sources/location"
	"portfolio-api/internal/sources/news"
	"portfolio-api/internal/sources/weather"
	"portfolio-api/internal/upstream"
	"portfolio-api/internal/visitors"
	"portfolio-api/internal/warmer"
)

// App holds all the application dependencies
type App struct {
	Config   *config.Config
	Store    kvstore.Store
	Cache    *cache.Cache
	Upstream *upstream.Client
	Blog     *blog.Aggregator
	News     *news.Aggregator
	Weather  *weather.Aggregator
	Location *location.Aggregator
	Visitors *visitors.Tracker
	Limiter  *ratelimit.Limiter
	Gate     *security.Gate
	Notifier notify.Notifier
	Locker   locks.Locker
	Warmer   *warmer.Warmer
	Logger   logging.Logger
}

// New creates a new application instance with all dependencies. The store is
// constructed once here and handed to every component that needs it.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.Component("app"),
	}

	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	app.initializeSources()
	app.initializeEdge()

	if err := app.initializeNotifier(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeWarmer(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

func (app *App) initializeSources() {
	cfg := app.Config

	app.Cache = cache.New(app.Store, logging.Component("cache"))

	upstreamConfig := upstream.DefaultConfig()
	upstreamConfig.Timeout = cfg.UpstreamTimeout
	upstreamConfig.RequestsPerSecond = cfg.UpstreamRPS
	app.Upstream = upstream.New(upstreamConfig, nil, logging.Component("upstream"))

	bridge := feed.NewBridge(app.Upstream, cfg.RSSBridgeURL, cfg.FeedTimeout)

	app.Blog = blog.New(bridge, app.Cache, []blog.Platform{
		{Name: blog.PlatformMedium, FeedURL: cfg.BlogMediumFeed},
		{Name: blog.PlatformDevto, FeedURL: cfg.BlogDevtoFeed},
	}, logging.Component("blog"))

	var newsSources []news.Source
	for _, f := range cfg.NewsRSSFeeds {
		newsSources = append(newsSources, news.Source{Name: f.Name, FeedURL: f.URL})
	}
	app.News = news.New(news.Config{
		APIKey:  cfg.NewsAPIKey,
		APIURL:  cfg.NewsAPIURL,
		Sources: newsSources,
		Timeout: cfg.FeedTimeout,
	}, app.Upstream, bridge, app.Cache, logging.Component("news"))

	app.Weather = weather.New(weather.Config{
		APIKey:  cfg.WeatherAPIKey,
		APIURL:  cfg.WeatherAPIURL,
		Timeout: cfg.UpstreamTimeout,
	}, app.Upstream, app.Cache, logging.Component("weather"))

	app.Location = location.New(location.Config{
		GeoIPURL:    cfg.GeoIPAPIURL,
		GeocodeURL:  cfg.GeocodeAPIURL,
		TimezoneURL: cfg.TimezoneAPIURL,
		Timeout:     cfg.UpstreamTimeout,
	}, app.Upstream, app.Cache, logging.Component("location"))

	app.Visitors = visitors.NewTracker(app.Store, cfg.VisitorSeed, logging.Component("visitors"))

	if cfg.WeatherAPIKey == "" {
		app.Logger.Warn("WEATHER_API_KEY not set, /api/weather will be unavailable")
	}
	if cfg.NewsAPIKey == "" {
		app.Logger.Info("NEWS_API_KEY not set, news will come from RSS feeds only")
	}
}

func (app *App) initializeEdge() {
	app.Limiter = ratelimit.New(app.Store, logging.Component("ratelimit"))
	app.Limiter.SetEnabled(app.Config.RateLimitEnabled)

	app.Gate = security.NewGate(security.Config{
		AllowedOrigins: app.Config.AllowedOrigins,
		MaxBodyBytes:   app.Config.MaxBodyBytes,
	}, logging.Component("security"))

	app.Logger.Info("Edge protection configured",
		logging.Bool("rate_limit_enabled", app.Config.RateLimitEnabled),
		logging.Int("allowed_origins", len(app.Config.AllowedOrigins)),
		logging.Int64("max_body_bytes", app.Config.MaxBodyBytes),
	)
}

func (app *App) initializeNotifier() error {
	cfg := app.Config
	if !cfg.SMTPEnabled {
		app.Notifier = notify.NewLogNotifier(logging.Component("notify"))
		app.Logger.Info("SMTP disabled, submissions will be logged only")
		return nil
	}

	notifier, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		To:       cfg.ContactEmail,
		UseSSL:   cfg.SMTPUseSSL,
	}, logging.Component("notify"))
	if err != nil {
		return err
	}
	app.Notifier = notifier
	return nil
}

func (app *App) initializeWarmer() error {
	if redisStore, ok := app.Store.(*kvstore.RedisStore); ok {
		locker, err := locks.NewRedsyncLocker(redisStore.Client())
		if err != nil {
			return err
		}
		app.Locker = locker
	} else {
		app.Locker = locks.NewLocalLocker()
	}

	if !app.Config.WarmEnabled {
		return nil
	}

	w, err := warmer.New(warmer.Config{Schedule: app.Config.WarmSchedule}, app.Locker, logging.Component("warmer"),
		warmer.Job{Name: "blog", Run: app.Blog.Warm},
		warmer.Job{Name: "news", Run: app.News.Warm},
	)
	if err != nil {
		return err
	}
	app.Warmer = w
	return nil
}

// Start launches background work
func (app *App) Start() {
	if app.Warmer == nil {
		return
	}
	app.Warmer.Start()

	// prime the cache without delaying startup
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_, _ = app.Warmer.RunOnce(ctx)
	}()
}

// Shutdown stops background work
func (app *App) Shutdown(ctx context.Context) {
	if app.Warmer != nil {
		app.Warmer.Stop(ctx)
		app.Logger.Info("Cache warmer stopped")
	}
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Error closing store", logging.Err(err))
		}
	}
}
