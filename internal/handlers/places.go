package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/ratelimit"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/sources/location"
)

// Weather serves GET /api/weather?lat=&lon=
func (h *Handlers) Weather(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := coordinates(r)
	if !ok {
		h.writeError(w, r, errors.ValidationError("lat and lon query parameters are required numbers"))
		return
	}

	result := h.deps.Weather.Current(r.Context(), lat, lon)
	if !result.OK() {
		h.writeError(w, r, result.Err)
		return
	}

	setCacheControl(w, cache.TTLShort)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"weather":     result.Value,
		"lastUpdated": lastUpdated(result.FetchedAt),
	})
}

// Location serves GET /api/location[?lat=&lon=]. Coordinates select the precise
// lookup; otherwise the caller's IP is geolocated.
func (h *Handlers) Location(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r, h.deps.DevMode)

	var result sources.Result[location.Location]
	q := r.URL.Query()
	if q.Get("lat") != "" || q.Get("lon") != "" {
		lat, lon, ok := coordinates(r)
		if !ok {
			// unparsable coordinates take the same fallback as out-of-range ones
			lat, lon = invalidCoordinate, invalidCoordinate
		}
		result = h.deps.Location.ByCoords(r.Context(), lat, lon, ip)
	} else {
		result = h.deps.Location.ByIP(r.Context(), ip)
	}

	if !result.OK() {
		h.writeError(w, r, result.Err)
		return
	}

	body := map[string]interface{}{
		"success":     true,
		"location":    result.Value,
		"lastUpdated": lastUpdated(result.FetchedAt),
	}
	if result.IsDegraded() {
		body["fallback"] = true
	}

	setCacheControl(w, cache.TTLLong)
	writeJSON(w, http.StatusOK, body)
}

// outside the valid range so ByCoords falls back
const invalidCoordinate = 1000.0

func coordinates(r *http.Request) (float64, float64, bool) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
