package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/validation"
	"portfolio-api/internal/notify"
)

// ContactRequest is the contact form payload
type ContactRequest struct {
	Name    string `json:"name" validate:"not_blank,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject,omitempty" validate:"omitempty,max=200"`
	Message string `json:"message" validate:"not_blank,min=10,max=5000"`
}

// FeedbackRequest is the site feedback payload
type FeedbackRequest struct {
	Type    string `json:"type,omitempty" validate:"omitempty,oneof=bug idea praise other"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Message string `json:"message" validate:"not_blank,max=2000"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Page    string `json:"page,omitempty" validate:"omitempty,max=300"`
}

// Contact serves POST /api/contact
func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Portfolio contact from " + strings.TrimSpace(req.Name)
	}

	h.deliver(w, r, notify.Message{
		Kind:    "contact",
		Subject: subject,
		ReplyTo: req.Email,
		Body:    req.Message,
		Fields: map[string]string{
			"name":  strings.TrimSpace(req.Name),
			"email": req.Email,
		},
	}, "Thanks for reaching out! I'll get back to you soon.")
}

// Feedback serves POST /api/feedback
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	kind := req.Type
	if kind == "" {
		kind = "other"
	}

	fields := map[string]string{
		"type":   kind,
		"rating": strconv.Itoa(req.Rating),
	}
	if req.Page != "" {
		fields["page"] = req.Page
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}

	h.deliver(w, r, notify.Message{
		Kind:    "feedback",
		Subject: fmt.Sprintf("Portfolio feedback (%s, %d/5)", kind, req.Rating),
		ReplyTo: req.Email,
		Body:    req.Message,
		Fields:  fields,
	}, "Thanks for your feedback!")
}

func (h *Handlers) deliver(w http.ResponseWriter, r *http.Request, msg notify.Message, thanks string) {
	if err := h.deps.Notifier.Notify(r.Context(), msg); err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to deliver submission", err,
			logging.String("kind", msg.Kind),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "unable to deliver your message right now, please try again later",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": thanks,
	})
}

func decodeAndValidate(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.ValidationError("request body must be a valid JSON object")
	}
	return validation.ValidateStruct(dest)
}
