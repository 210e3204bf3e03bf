package handlers

import (
	"net/http"
	"time"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/sources"
)

// Blog serves GET /api/blog?platform=all|medium|devto
func (h *Handlers) Blog(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Blog.Fetch(r.Context(), r.URL.Query().Get("platform"))
	h.writeFeed(w, r, result, "posts", cache.TTLLong)
}

// News serves GET /api/news?source=all|<name>
func (h *Handlers) News(w http.ResponseWriter, r *http.Request) {
	result := h.deps.News.Fetch(r.Context(), r.URL.Query().Get("source"))
	h.writeFeed(w, r, result, "articles", cache.TTLMedium)
}

func (h *Handlers) writeFeed(w http.ResponseWriter, r *http.Request, result sources.Result[[]sources.Item], field string, ttl time.Duration) {
	if !result.OK() {
		h.writeError(w, r, result.Err)
		return
	}

	feed := sources.Feed(result)
	body := map[string]interface{}{
		"success":     true,
		field:         feed.Items,
		"lastUpdated": lastUpdated(feed.FetchedAt),
	}
	if result.IsDegraded() {
		body["fallback"] = true
	}

	setCacheControl(w, ttl)
	writeJSON(w, http.StatusOK, body)
}
