package cache

import (
	"fmt"
	"math"
	"strings"
)

// Key prefixes. Each namespace is owned by one component.
const (
	PrefixBlog      = "blog:"
	PrefixNews      = "news:"
	PrefixWeather   = "weather:"
	PrefixLocation  = "location:"
	PrefixSession   = "session:"
	PrefixRateLimit = "ratelimit:"
)

// BlogAllKey holds the merged feed of every blog platform
const BlogAllKey = PrefixBlog + "all"

// BlogKey is the key for a single blog platform
func BlogKey(platform string) string {
	return PrefixBlog + normalize(platform)
}

// NewsKey is the key for one news source, or "all" for the merged feed
func NewsKey(source string) string {
	if source == "" {
		source = "all"
	}
	return PrefixNews + normalize(source)
}

// WeatherKey rounds coordinates to two decimals (about 1 km) so nearby callers share an entry
func WeatherKey(lat, lon float64) string {
	return fmt.Sprintf("%s%s:%s", PrefixWeather, coord(lat), coord(lon))
}

// LocationKey is the key of an IP geolocation lookup
func LocationKey(ip string) string {
	return PrefixLocation + ip
}

// LocationCoordsKey is the key of a reverse-geocoding lookup
func LocationCoordsKey(lat, lon float64) string {
	return fmt.Sprintf("%scoords:%s:%s", PrefixLocation, coord(lat), coord(lon))
}

// SessionKey marks a visitor as active while it exists
func SessionKey(visitorID string) string {
	return PrefixSession + visitorID
}

// RateLimitKey is the fixed-window counter of one client on one endpoint
func RateLimitKey(endpoint, ip string) string {
	return fmt.Sprintf("%s%s:%s", PrefixRateLimit, endpoint, ip)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func coord(v float64) string {
	rounded := math.Round(v*100) / 100
	if rounded == 0 {
		// avoid "-0.00"
		rounded = 0
	}
	return fmt.Sprintf("%.2f", rounded)
}
