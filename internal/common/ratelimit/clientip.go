package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// UnknownClient is the identity shared by requests without a usable address
	UnknownClient = "unknown"
	devClient     = "127.0.0.1"
)

// ClientIP returns the first X-Forwarded-For hop when it is a dotted-quad IPv4 address.
// Anything else collapses to UnknownClient, or to the loopback address in development.
func ClientIP(r *http.Request, devMode bool) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	first := strings.TrimSpace(strings.Split(forwarded, ",")[0])

	if isIPv4(first) {
		return first
	}
	if devMode {
		return devClient
	}
	return UnknownClient
}

func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}
