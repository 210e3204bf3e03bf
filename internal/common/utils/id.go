// Package utils holds small helpers shared across the service: request ids, retry with
// backoff and extended duration parsing.
package utils

import (
	"regexp"

	"github.com/google/uuid"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// NewRequestID returns a random UUID v4 string
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDOrNew keeps a caller-supplied request id when it is safe to log, otherwise
// generates a new one.
func RequestIDOrNew(supplied string) string {
	if requestIDPattern.MatchString(supplied) {
		return supplied
	}
	return NewRequestID()
}
