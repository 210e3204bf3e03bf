package handlers

import (
	"net/http"
	"time"

	"portfolio-api/internal/common/logging"
)

const (
	// VisitorCookie holds the visitor id between visits
	VisitorCookie    = "visitor_id"
	visitorCookieAge = 365 * 24 * time.Hour
)

// Visitors serves GET /api/visitors. It records the visit and (re)issues the
// visitor cookie.
func (h *Handlers) Visitors(w http.ResponseWriter, r *http.Request) {
	var existing string
	if c, err := r.Cookie(VisitorCookie); err == nil {
		existing = c.Value
	}

	visit, err := h.deps.Visitors.Track(r.Context(), existing)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := logging.ContextWithVisitorID(r.Context(), visit.VisitorID)
	if visit.IsNewVisitor {
		h.logger.WithContext(ctx).Debug("Issued visitor cookie")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    visit.VisitorID,
		Path:     "/",
		MaxAge:   int(visitorCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   !h.deps.DevMode,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", "no-store")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"visitorId":      visit.VisitorID,
		"isNewVisitor":   visit.IsNewVisitor,
		"totalVisitors":  visit.TotalVisitors,
		"activeVisitors": visit.ActiveVisitors,
	})
}
