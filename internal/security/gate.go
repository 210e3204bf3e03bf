// Package security holds the edge checks applied to mutating endpoints and the
// helpers used to keep secrets out of logs.
package security

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"portfolio-api/internal/common/logging"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured
const DefaultMaxBodyBytes int64 = 64 * 1024

// suspiciousPatterns are matched against the raw request body
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)<[^>]*\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`(?i)'\s*(--|#|/\*)`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+'?\d+'?\s*=\s*'?\d+`),
	regexp.MustCompile(`(?i);\s*(drop\s+table|truncate\s+table|delete\s+from|insert\s+into)\b`),
}

// Config configures the gate
type Config struct {
	// AllowedOrigins lists accepted Origin header values. Empty accepts any origin.
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Gate rejects requests that fail origin, content type, size or content checks
type Gate struct {
	origins  map[string]struct{}
	maxBytes int64
	logger   logging.Logger
}

// NewGate creates a gate from config
func NewGate(config Config, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Component("security")
	}

	maxBytes := config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	origins := make(map[string]struct{}, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins[strings.ToLower(origin)] = struct{}{}
		}
	}

	return &Gate{
		origins:  origins,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// OriginAllowed reports whether origin may call mutating endpoints. Requests
// without an Origin header are not browser cross-site requests and pass.
func (g *Gate) OriginAllowed(origin string) bool {
	if origin == "" || len(g.origins) == 0 {
		return true
	}
	_, ok := g.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}

// Suspicious reports whether body contains a known injection payload
func Suspicious(body []byte) bool {
	if len(body) == 0 {
		return false
	}

	// scan decoded string values so escaped payloads are caught too
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, value := range stringValues(decoded) {
			if matchesAny(value) {
				return true
			}
		}
		return false
	}

	return matchesAny(string(body))
}

// Middleware applies the checks and restores the body for the next handler
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := g.logger.WithContext(r.Context())

		if origin := r.Header.Get("Origin"); !g.OriginAllowed(origin) {
			log.Warn("Rejected request from disallowed origin", logging.String("origin", origin))
			reject(w, http.StatusForbidden, "origin not allowed")
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			reject(w, http.StatusUnsupportedMediaType, "content type must be application/json")
			return
		}

		if r.ContentLength > g.maxBytes {
			reject(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, g.maxBytes+1))
		_ = r.Body.Close()
		if err != nil {
			reject(w, http.StatusBadRequest, "unable to read request body")
			return
		}
		if int64(len(body)) > g.maxBytes {
			reject(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		if Suspicious(body) {
			log.Warn("Rejected request with suspicious payload",
				logging.String("path", r.URL.Path),
				logging.Int("size", len(body)),
			)
			reject(w, http.StatusBadRequest, "request contains disallowed content")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}

func matchesAny(s string) bool {
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func stringValues(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case map[string]interface{}:
		var out []string
		for key, value := range t {
			out = append(out, key)
			out = append(out, stringValues(value)...)
		}
		return out
	case []interface{}:
		var out []string
		for _, value := range t {
			out = append(out, stringValues(value)...)
		}
		return out
	default:
		return nil
	}
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
