package handlers

import (
	"context"
	"net/http"
	"time"

	"portfolio-api/internal/circuitbreaker"
	"portfolio-api/internal/common/logging"
)

// Health serves GET /health: store reachability plus breaker states
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, storeStatus, code := "healthy", "ok", http.StatusOK
	if err := h.deps.Store.Ping(ctx); err != nil {
		h.logger.WithContext(ctx).Warn("Health check: store unreachable", logging.Err(err))
		status, storeStatus, code = "unhealthy", "unreachable", http.StatusServiceUnavailable
	}

	breakers := []circuitbreaker.Stats{}
	if h.deps.Breakers != nil {
		breakers = append(breakers, h.deps.Breakers()...)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"store":     storeStatus,
		"breakers":  breakers,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
