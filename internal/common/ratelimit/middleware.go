package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
)

// Middleware enforces policy per client IP. It panics if policy is invalid, which
// can only happen when routes are wired.
func (l *Limiter) Middleware(policy Policy, devMode bool) func(http.Handler) http.Handler {
	if err := policy.Validate(); err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, devMode)
			ctx := logging.ContextWithClientIP(r.Context(), ip)

			// store errors are already logged and folded into the result
			result, _ := l.Check(ctx, ip, policy)

			setHeaders(w, result)

			if !result.Allowed {
				retryAfter := result.RetryAfter(l.now())
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))

				l.logger.WithContext(ctx).Warn("Rate limit exceeded",
					logging.String("policy", policy.Name),
					logging.String("path", r.URL.Path),
				)

				limitErr := errors.RateLimitError(policy.Name)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(errors.HTTPStatus(limitErr))
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success":    false,
					"error":      errors.PublicMessage(limitErr),
					"retryAfter": int(retryAfter.Seconds()),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
	w.Header().Set("RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	w.Header().Set("RateLimit-Reset", result.ResetTime.UTC().Format(time.RFC3339))
}
