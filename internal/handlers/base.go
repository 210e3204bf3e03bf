// Package handlers exposes the aggregators, visitor tracker and submission
// endpoints over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"portfolio-api/internal/circuitbreaker"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/notify"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/sources/location"
	"portfolio-api/internal/sources/weather"
	"portfolio-api/internal/visitors"
)

// FeedFetcher returns a named feed (blog platform or news source)
type FeedFetcher interface {
	Fetch(ctx context.Context, name string) sources.Result[[]sources.Item]
}

// WeatherFetcher returns current conditions
type WeatherFetcher interface {
	Current(ctx context.Context, lat, lon float64) sources.Result[weather.Weather]
}

// Locator resolves a visitor's location
type Locator interface {
	ByIP(ctx context.Context, ip string) sources.Result[location.Location]
	ByCoords(ctx context.Context, lat, lon float64, ip string) sources.Result[location.Location]
}

// VisitorTracker records visits
type VisitorTracker interface {
	Track(ctx context.Context, existingID string) (*visitors.Visit, error)
}

// Pinger reports store reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into
type Deps struct {
	Blog     FeedFetcher
	News     FeedFetcher
	Weather  WeatherFetcher
	Location Locator
	Visitors VisitorTracker
	Notifier notify.Notifier
	Store    Pinger
	// Breakers reports upstream circuit breaker state for the health endpoint
	Breakers func() []circuitbreaker.Stats
	DevMode  bool
	Logger   logging.Logger
}

// Handlers serves the public API
type Handlers struct {
	deps   Deps
	logger logging.Logger
}

func New(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Component("handlers")
	}
	return &Handlers{deps: deps, logger: logger}
}

// writeJSON encodes body with status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to a status and a client-safe message
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	log := h.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, logging.String("path", r.URL.Path))
	} else {
		log.Debug("Request rejected", logging.String("path", r.URL.Path), logging.Err(err))
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errors.PublicMessage(err),
	})
}

// setCacheControl lets shared caches serve the response for ttl and stale for twice that
func setCacheControl(w http.ResponseWriter, ttl time.Duration) {
	seconds := int(ttl.Seconds())
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", seconds, 2*seconds))
}

func lastUpdated(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
