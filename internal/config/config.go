// Package config provides configuration management for the portfolio API.
// It loads configuration from environment variables with sensible defaults
// and validates it so the service refuses to start with unsafe values.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - ENVIRONMENT: development or production (default: development)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: console or json (default: json)
//   - LOG_FILE: Optional log file path
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address; empty selects the in-memory store
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Edge Protection:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - ALLOWED_ORIGINS: Comma separated origins allowed to POST
//   - MAX_BODY_BYTES: Request body limit for POST endpoints (default: 65536)
//
// Providers:
//   - RSS_BRIDGE_URL, BLOG_MEDIUM_FEED, BLOG_DEVTO_FEED
//   - NEWS_API_KEY, NEWS_API_URL, NEWS_RSS_FEEDS (name=url,...)
//   - WEATHER_API_KEY, WEATHER_API_URL
//   - GEOIP_API_URL, GEOCODE_API_URL, TIMEZONE_API_URL
//   - UPSTREAM_TIMEOUT (default: 8s), FEED_TIMEOUT (default: 10s), UPSTREAM_RPS (default: 5)
//
// Visitors and Warming:
//   - VISITOR_SEED: Initial total visitor count (default: 100)
//   - WARM_ENABLED: Run the cache warmer (default: true)
//   - WARM_SCHEDULE: Cron schedule for the warmer (default: */15 * * * *)
//
// Notifications:
//   - SMTP_ENABLED, SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM, SMTP_USE_SSL
//   - CONTACT_EMAIL: Recipient of contact and feedback submissions
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"portfolio-api/internal/common/utils"
	"portfolio-api/internal/common/validation"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// FeedSource is a named RSS feed from NEWS_RSS_FEEDS
type FeedSource struct {
	Name string
	URL  string
}

// Config holds all configuration values for the portfolio API.
//
// The configuration is loaded using Load() and should be validated using
// Validate() before use.
type Config struct {
	// Application settings
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string
	LogFile     string

	// Redis; an empty address selects the in-memory store
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Edge protection
	RateLimitEnabled bool
	AllowedOrigins   []string
	MaxBodyBytes     int64

	// Feeds
	RSSBridgeURL   string
	BlogMediumFeed string
	BlogDevtoFeed  string

	// News
	NewsAPIKey   string
	NewsAPIURL   string
	NewsRSSFeeds []FeedSource

	// Weather
	WeatherAPIKey string
	WeatherAPIURL string

	// Location
	GeoIPAPIURL    string
	GeocodeAPIURL  string
	TimezoneAPIURL string

	// Outbound calls
	UpstreamTimeout time.Duration
	FeedTimeout     time.Duration
	UpstreamRPS     float64

	// Visitors
	VisitorSeed int64

	// Cache warmer
	WarmEnabled  bool
	WarmSchedule string

	// Notifications
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseSSL   bool
	ContactEmail string
}

// Load creates a new Config with values loaded from environment variables.
// Unset variables take their defaults. Load does not validate.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", EnvDevelopment)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		LogFile:     getEnv("LOG_FILE", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		AllowedOrigins:   getListEnv("ALLOWED_ORIGINS"),
		MaxBodyBytes:     int64(getIntEnv("MAX_BODY_BYTES", 64*1024)),

		RSSBridgeURL:   getEnv("RSS_BRIDGE_URL", "https://api.rss2json.com/v1/api.json"),
		BlogMediumFeed: getEnv("BLOG_MEDIUM_FEED", ""),
		BlogDevtoFeed:  getEnv("BLOG_DEVTO_FEED", ""),

		NewsAPIKey:   getEnv("NEWS_API_KEY", ""),
		NewsAPIURL:   getEnv("NEWS_API_URL", "https://newsapi.org/v2/top-headlines"),
		NewsRSSFeeds: parseFeeds(getEnv("NEWS_RSS_FEEDS", "")),

		WeatherAPIKey: getEnv("WEATHER_API_KEY", ""),
		WeatherAPIURL: getEnv("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5"),

		GeoIPAPIURL:    getEnv("GEOIP_API_URL", "https://ipapi.co"),
		GeocodeAPIURL:  getEnv("GEOCODE_API_URL", "https://nominatim.openstreetmap.org"),
		TimezoneAPIURL: getEnv("TIMEZONE_API_URL", "https://timeapi.io/api"),

		UpstreamTimeout: getDurationEnv("UPSTREAM_TIMEOUT", 8*time.Second),
		FeedTimeout:     getDurationEnv("FEED_TIMEOUT", 10*time.Second),
		UpstreamRPS:     getFloatEnv("UPSTREAM_RPS", 5),

		VisitorSeed: int64(getIntEnv("VISITOR_SEED", 100)),

		WarmEnabled:  getBoolEnv("WARM_ENABLED", true),
		WarmSchedule: getEnv("WARM_SCHEDULE", "*/15 * * * *"),

		SMTPEnabled:  getBoolEnv("SMTP_ENABLED", false),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPUseSSL:   getBoolEnv("SMTP_USE_SSL", false),
		ContactEmail: getEnv("CONTACT_EMAIL", ""),
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment != EnvProduction
}

// Validate checks formats, ranges and cross-field requirements
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		port = -1
	}

	fv := validation.NewFluentValidatorWithPrefix("config").
		RequireRange(port, 1, 65535, "PORT").
		RequireOneOf(c.Environment, []string{EnvDevelopment, EnvProduction}, "ENVIRONMENT").
		RequireOneOf(c.LogFormat, []string{"console", "json"}, "LOG_FORMAT").
		Validate(func() error {
			if c.MaxBodyBytes < 1 {
				return fmt.Errorf("MAX_BODY_BYTES must be a positive number")
			}
			if c.UpstreamTimeout <= 0 || c.FeedTimeout <= 0 {
				return fmt.Errorf("UPSTREAM_TIMEOUT and FEED_TIMEOUT must be positive durations")
			}
			if c.UpstreamRPS < 0 {
				return fmt.Errorf("UPSTREAM_RPS must not be negative")
			}
			if c.VisitorSeed < 0 {
				return fmt.Errorf("VISITOR_SEED must not be negative")
			}
			return nil
		}).
		RequireURL(c.RSSBridgeURL, "RSS_BRIDGE_URL").
		RequireURL(c.NewsAPIURL, "NEWS_API_URL").
		RequireURL(c.WeatherAPIURL, "WEATHER_API_URL").
		RequireURL(c.GeoIPAPIURL, "GEOIP_API_URL").
		RequireURL(c.GeocodeAPIURL, "GEOCODE_API_URL").
		RequireURL(c.TimezoneAPIURL, "TIMEZONE_API_URL")

	if c.RedisAddress != "" {
		fv.RequireRange(c.RedisDB, 0, 15, "REDIS_DB").
			RequirePositive(c.RedisPoolSize, "REDIS_POOL_SIZE")
	}

	if c.WarmEnabled {
		fv.RequireSchedule(c.WarmSchedule, "WARM_SCHEDULE")
	}

	if c.SMTPEnabled {
		fv.RequireString(c.SMTPHost, "SMTP_HOST").
			RequireString(c.SMTPFrom, "SMTP_FROM").
			RequireString(c.ContactEmail, "CONTACT_EMAIL").
			ValidateIf(c.ContactEmail != "", func() error {
				if validation.ValidateVar(c.ContactEmail, "email") != nil {
					return fmt.Errorf("CONTACT_EMAIL must be a valid email address")
				}
				return nil
			})
	}

	return fv.Error()
}

// Settings returns the configuration as environment-style key/values for
// startup logging. Secrets must be filtered before logging.
func (c *Config) Settings() map[string]string {
	feeds := make([]string, len(c.NewsRSSFeeds))
	for i, f := range c.NewsRSSFeeds {
		feeds[i] = f.Name + "=" + f.URL
	}

	return map[string]string{
		"PORT":               c.Port,
		"ENVIRONMENT":        c.Environment,
		"LOG_LEVEL":          c.LogLevel,
		"LOG_FORMAT":         c.LogFormat,
		"REDIS_ADDRESS":      c.RedisAddress,
		"REDIS_PASSWORD":     c.RedisPassword,
		"REDIS_DB":           strconv.Itoa(c.RedisDB),
		"RATE_LIMIT_ENABLED": strconv.FormatBool(c.RateLimitEnabled),
		"ALLOWED_ORIGINS":    strings.Join(c.AllowedOrigins, ","),
		"MAX_BODY_BYTES":     strconv.FormatInt(c.MaxBodyBytes, 10),
		"RSS_BRIDGE_URL":     c.RSSBridgeURL,
		"BLOG_MEDIUM_FEED":   c.BlogMediumFeed,
		"BLOG_DEVTO_FEED":    c.BlogDevtoFeed,
		"NEWS_API_KEY":       c.NewsAPIKey,
		"NEWS_API_URL":       c.NewsAPIURL,
		"NEWS_RSS_FEEDS":     strings.Join(feeds, ","),
		"WEATHER_API_KEY":    c.WeatherAPIKey,
		"WEATHER_API_URL":    c.WeatherAPIURL,
		"GEOIP_API_URL":      c.GeoIPAPIURL,
		"GEOCODE_API_URL":    c.GeocodeAPIURL,
		"TIMEZONE_API_URL":   c.TimezoneAPIURL,
		"UPSTREAM_TIMEOUT":   c.UpstreamTimeout.String(),
		"FEED_TIMEOUT":       c.FeedTimeout.String(),
		"UPSTREAM_RPS":       strconv.FormatFloat(c.UpstreamRPS, 'f', -1, 64),
		"WARM_ENABLED":       strconv.FormatBool(c.WarmEnabled),
		"WARM_SCHEDULE":      c.WarmSchedule,
		"SMTP_ENABLED":       strconv.FormatBool(c.SMTPEnabled),
		"SMTP_HOST":          c.SMTPHost,
		"SMTP_USERNAME":      c.SMTPUsername,
		"SMTP_PASSWORD":      c.SMTPPassword,
		"CONTACT_EMAIL":      c.ContactEmail,
	}
}

// getEnv retrieves an environment variable or returns defaultValue if unset or empty
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts strconv.ParseBool forms; anything else yields defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv returns defaultValue when the variable is unset or not an integer
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations plus d and w suffixes
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := utils.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseFeeds parses name=url pairs; malformed entries are skipped
func parseFeeds(raw string) []FeedSource {
	var feeds []FeedSource
	for _, pair := range strings.Split(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			continue
		}
		feeds = append(feeds, FeedSource{Name: strings.ToLower(name), URL: url})
	}
	return feeds
}
