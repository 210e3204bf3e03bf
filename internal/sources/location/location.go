// Package location resolves where a visitor is, coarsely from their IP address or
// precisely from browser-supplied coordinates.
package location

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/ratelimit"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/upstream"
)

const (
	// DefaultGeoIPURL is the ipapi.co API root
	DefaultGeoIPURL = "https://ipapi.co"
	// DefaultGeocodeURL is the Nominatim API root
	DefaultGeocodeURL = "https://nominatim.openstreetmap.org"
	// DefaultTimezoneURL is the timeapi.io API root
	DefaultTimezoneURL = "https://timeapi.io/api"
	// DefaultTimeout bounds each provider call
	DefaultTimeout = 8 * time.Second
)

// Location is the normalized answer of both lookup modes
type Location struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	IsExact     bool    `json:"isExact"`
}

// Default is served when IP geolocation fails
func Default() Location {
	return Location{
		City:        "London",
		Region:      "England",
		Country:     "United Kingdom",
		CountryCode: "GB",
		Latitude:    51.5074,
		Longitude:   -0.1278,
		Timezone:    "Europe/London",
	}
}

// Config holds provider endpoints
type Config struct {
	GeoIPURL    string
	GeocodeURL  string
	TimezoneURL string
	Timeout     time.Duration
}

// Aggregator resolves visitor locations through geolocation, reverse geocoding
// and timezone providers
type Aggregator struct {
	config Config
	client *upstream.Client
	cache  *cache.Cache
	logger logging.Logger
}

// New creates a location aggregator
func New(config Config, client *upstream.Client, c *cache.Cache, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Component("location")
	}
	if config.GeoIPURL == "" {
		config.GeoIPURL = DefaultGeoIPURL
	}
	if config.GeocodeURL == "" {
		config.GeocodeURL = DefaultGeocodeURL
	}
	if config.TimezoneURL == "" {
		config.TimezoneURL = DefaultTimezoneURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.GeoIPURL = strings.TrimRight(config.GeoIPURL, "/")
	config.GeocodeURL = strings.TrimRight(config.GeocodeURL, "/")
	config.TimezoneURL = strings.TrimRight(config.TimezoneURL, "/")

	return &Aggregator{config: config, client: client, cache: c, logger: logger}
}

// ByIP geolocates ip. It never fails: provider errors yield the default location marked
// degraded.
func (a *Aggregator) ByIP(ctx context.Context, ip string) sources.Result[Location] {
	return sources.Cached(ctx, a.cache, cache.LocationKey(ip), cache.TTLLong, func(ctx context.Context) sources.Result[Location] {
		loc, err := a.geoIP(ctx, ip)
		if err != nil {
			a.logger.WithContext(ctx).Warn("IP geolocation failed, using default location",
				logging.String("ip", ip),
				logging.Err(err),
			)
			return sources.Degraded(Default(), "ip geolocation unavailable")
		}
		return sources.Fresh(*loc)
	})
}

// ByCoords reverse-geocodes lat/lon and looks up its timezone. Any failure on that path,
// including invalid coordinates, falls back to ByIP and marks the result degraded.
func (a *Aggregator) ByCoords(ctx context.Context, lat, lon float64, ip string) sources.Result[Location] {
	var err error
	if err = sources.ValidateCoordinates(lat, lon); err == nil {
		r := sources.Cached(ctx, a.cache, cache.LocationCoordsKey(lat, lon), cache.TTLLong, func(ctx context.Context) sources.Result[Location] {
			loc, err := a.precise(ctx, lat, lon)
			if err != nil {
				return sources.Failed[Location](err)
			}
			return sources.Fresh(*loc)
		})
		if r.OK() {
			return r
		}
		err = r.Err
	}

	a.logger.WithContext(ctx).Warn("Precise location failed, falling back to IP",
		logging.Err(err),
	)

	coarse := a.ByIP(ctx, ip)
	coarse.Status = sources.StatusDegraded
	coarse.Reason = "precise location unavailable"
	return coarse
}

type geoIPResponse struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

func (a *Aggregator) geoIP(ctx context.Context, ip string) (*Location, error) {
	// without a usable address the provider locates the caller, which is this server
	endpoint := a.config.GeoIPURL + "/json/"
	if ip != "" && ip != ratelimit.UnknownClient {
		endpoint = fmt.Sprintf("%s/%s/json/", a.config.GeoIPURL, url.PathEscape(ip))
	}

	var resp geoIPResponse
	if err := a.client.GetJSON(ctx, upstream.Request{
		Provider: "geoip",
		URL:      endpoint,
		Timeout:  a.config.Timeout,
	}, &resp); err != nil {
		return nil, err
	}

	if resp.Error {
		return nil, errors.UpstreamError("geoip", 0, fmt.Errorf("%s", resp.Reason))
	}
	if resp.City == "" && resp.CountryName == "" {
		return nil, errors.UpstreamError("geoip", 0, fmt.Errorf("empty location"))
	}

	return &Location{
		City:        resp.City,
		Region:      resp.Region,
		Country:     resp.CountryName,
		CountryCode: resp.CountryCode,
		Latitude:    resp.Latitude,
		Longitude:   resp.Longitude,
		Timezone:    resp.Timezone,
	}, nil
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		County      string `json:"county"`
		State       string `json:"state"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Error string `json:"error"`
}

type timezoneResponse struct {
	TimeZone string `json:"timeZone"`
}

func (a *Aggregator) precise(ctx context.Context, lat, lon float64) (*Location, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%.5f", lat))
	query.Set("lon", fmt.Sprintf("%.5f", lon))

	var place reverseResponse
	if err := a.client.GetJSON(ctx, upstream.Request{
		Provider: "geocode",
		URL:      a.config.GeocodeURL + "/reverse?" + query.Encode(),
		Timeout:  a.config.Timeout,
	}, &place); err != nil {
		return nil, err
	}
	if place.Error != "" {
		return nil, errors.UpstreamError("geocode", 0, fmt.Errorf("%s", place.Error))
	}

	tzQuery := url.Values{}
	tzQuery.Set("latitude", fmt.Sprintf("%.5f", lat))
	tzQuery.Set("longitude", fmt.Sprintf("%.5f", lon))

	var tz timezoneResponse
	if err := a.client.GetJSON(ctx, upstream.Request{
		Provider: "timezone",
		URL:      a.config.TimezoneURL + "/TimeZone/coordinate?" + tzQuery.Encode(),
		Timeout:  a.config.Timeout,
	}, &tz); err != nil {
		return nil, err
	}

	city := firstNonEmpty(place.Address.City, place.Address.Town, place.Address.Village, place.Address.County)

	return &Location{
		City:        city,
		Region:      place.Address.State,
		Country:     place.Address.Country,
		CountryCode: strings.ToUpper(place.Address.CountryCode),
		Latitude:    lat,
		Longitude:   lon,
		Timezone:    tz.TimeZone,
		IsExact:     true,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
