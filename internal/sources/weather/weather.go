// Package weather reports current conditions for a coordinate from an OpenWeatherMap
// style provider.
package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/upstream"
)

const (
	// DefaultAPIURL is the OpenWeatherMap 2.5 API root
	DefaultAPIURL = "https://api.openweathermap.org/data/2.5"
	// DefaultTimeout bounds each provider call
	DefaultTimeout = 8 * time.Second

	provider = "openweathermap"
)

// Weather is the normalized current-conditions record
type Weather struct {
	Temperature float64     `json:"temperature"`
	FeelsLike   float64     `json:"feelsLike"`
	Condition   string      `json:"condition"`
	Description string      `json:"description"`
	Humidity    int         `json:"humidity"`
	WindSpeed   float64     `json:"windSpeed"`
	Location    string      `json:"location"`
	Country     string      `json:"country,omitempty"`
	Icon        string      `json:"icon"`
	Sunrise     time.Time   `json:"sunrise,omitempty"`
	Sunset      time.Time   `json:"sunset,omitempty"`
	AirQuality  *AirQuality `json:"airQuality,omitempty"`
}

// AirQuality is present only when the secondary lookup succeeded
type AirQuality struct {
	AQI   int     `json:"aqi"`
	Label string  `json:"label"`
	PM25  float64 `json:"pm25"`
	PM10  float64 `json:"pm10"`
}

// Config holds weather provider settings
type Config struct {
	APIKey  string
	APIURL  string
	Units   string
	Timeout time.Duration
}

// Aggregator reports current conditions for a coordinate pair
type Aggregator struct {
	config Config
	client *upstream.Client
	cache  *cache.Cache
	logger logging.Logger
}

// New creates a weather aggregator
func New(config Config, client *upstream.Client, c *cache.Cache, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Component("weather")
	}
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.Units == "" {
		config.Units = "metric"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Aggregator{config: config, client: client, cache: c, logger: logger}
}

// Current returns conditions at lat/lon. There is no fallback provider: a missing key or
// a provider failure is a failed result and nothing is cached.
func (a *Aggregator) Current(ctx context.Context, lat, lon float64) sources.Result[Weather] {
	if err := sources.ValidateCoordinates(lat, lon); err != nil {
		return sources.Failed[Weather](err)
	}

	return sources.Cached(ctx, a.cache, cache.WeatherKey(lat, lon), cache.TTLShort, func(ctx context.Context) sources.Result[Weather] {
		w, err := a.fetch(ctx, lat, lon)
		if err != nil {
			return sources.Failed[Weather](err)
		}
		return sources.Fresh(*w)
	})
}

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

type airResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
		} `json:"components"`
	} `json:"list"`
}

func (a *Aggregator) fetch(ctx context.Context, lat, lon float64) (*Weather, error) {
	if a.config.APIKey == "" {
		return nil, errors.ConfigError("weather API key is not configured")
	}

	var resp currentResponse
	if err := a.client.GetJSON(ctx, upstream.Request{
		Provider: provider,
		URL:      a.endpoint("weather", lat, lon, true),
		Timeout:  a.config.Timeout,
	}, &resp); err != nil {
		return nil, err
	}

	w := &Weather{
		Temperature: round1(resp.Main.Temp),
		FeelsLike:   round1(resp.Main.FeelsLike),
		Humidity:    resp.Main.Humidity,
		WindSpeed:   round1(resp.Wind.Speed),
		Location:    resp.Name,
		Country:     resp.Sys.Country,
	}
	if len(resp.Weather) > 0 {
		w.Condition = resp.Weather[0].Main
		w.Description = resp.Weather[0].Description
	}
	if resp.Sys.Sunrise > 0 {
		w.Sunrise = time.Unix(resp.Sys.Sunrise, 0).UTC()
		w.Sunset = time.Unix(resp.Sys.Sunset, 0).UTC()
	}
	w.Icon = Icon(w.Condition)
	w.AirQuality = a.airQuality(ctx, lat, lon)

	return w, nil
}

// airQuality returns nil on any failure
func (a *Aggregator) airQuality(ctx context.Context, lat, lon float64) *AirQuality {
	var resp airResponse
	err := a.client.GetJSON(ctx, upstream.Request{
		Provider: provider + "-air",
		URL:      a.endpoint("air_pollution", lat, lon, false),
		Timeout:  a.config.Timeout,
	}, &resp)
	if err != nil || len(resp.List) == 0 {
		a.logger.WithContext(ctx).Debug("Air quality unavailable", logging.Err(err))
		return nil
	}

	entry := resp.List[0]
	return &AirQuality{
		AQI:   entry.Main.AQI,
		Label: aqiLabel(entry.Main.AQI),
		PM25:  entry.Components.PM25,
		PM10:  entry.Components.PM10,
	}
}

func (a *Aggregator) endpoint(path string, lat, lon float64, withUnits bool) string {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.4f", lat))
	query.Set("lon", fmt.Sprintf("%.4f", lon))
	query.Set("appid", a.config.APIKey)
	if withUnits {
		query.Set("units", a.config.Units)
	}
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(a.config.APIURL, "/"), path, query.Encode())
}

var icons = []struct {
	keywords []string
	icon     string
}{
	{[]string{"thunder", "storm"}, "storm"},
	{[]string{"drizzle"}, "drizzle"},
	{[]string{"rain", "shower"}, "rain"},
	{[]string{"snow", "sleet"}, "snow"},
	{[]string{"mist", "fog", "haze", "smoke", "dust", "sand", "ash"}, "fog"},
	{[]string{"tornado", "squall"}, "wind"},
	{[]string{"clear", "sun"}, "clear"},
	{[]string{"cloud", "overcast"}, "cloudy"},
}

// Icon picks an icon name by case-insensitive keyword match on the condition
func Icon(condition string) string {
	c := strings.ToLower(condition)
	for _, entry := range icons {
		for _, kw := range entry.keywords {
			if strings.Contains(c, kw) {
				return entry.icon
			}
		}
	}
	return "partly-cloudy"
}

func aqiLabel(aqi int) string {
	switch aqi {
	case 1:
		return "Good"
	case 2:
		return "Fair"
	case 3:
		return "Moderate"
	case 4:
		return "Poor"
	case 5:
		return "Very Poor"
	}
	return "Unknown"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
