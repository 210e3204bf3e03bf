package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
)

// Recovery turns a handler panic into a generic 500
func Recovery(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Component("http")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.WithContext(r.Context()).Error("Recovered from handler panic",
					errors.InternalError(fmt.Sprintf("panic: %v", rec), nil),
					logging.String("path", r.URL.Path),
					logging.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
