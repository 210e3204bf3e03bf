package handlers

import (
	"net/http"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/ratelimit"
	"portfolio-api/internal/security"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every endpoint on router. Mutating endpoints pass the
// security gate first, then their rate limit policy.
func (h *Handlers) RegisterRoutes(router *mux.Router, limiter *ratelimit.Limiter, gate *security.Gate) {
	router.NotFoundHandler = http.HandlerFunc(h.notFound)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/blog", h.Blog).Methods(http.MethodGet)
	api.HandleFunc("/news", h.News).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.Weather).Methods(http.MethodGet)
	api.HandleFunc("/location", h.Location).Methods(http.MethodGet)
	api.HandleFunc("/visitors", h.Visitors).Methods(http.MethodGet)

	api.Handle("/contact", h.protect(http.HandlerFunc(h.Contact), limiter, gate, ratelimit.Contact)).Methods(http.MethodPost)
	api.Handle("/feedback", h.protect(http.HandlerFunc(h.Feedback), limiter, gate, ratelimit.Feedback)).Methods(http.MethodPost)
}

func (h *Handlers) protect(next http.Handler, limiter *ratelimit.Limiter, gate *security.Gate, policy ratelimit.Policy) http.Handler {
	return gate.Middleware(limiter.Middleware(policy, h.deps.DevMode)(next))
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, errors.NotFoundError("route"))
}
