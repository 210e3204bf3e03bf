package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

func newRequest(body, contentType, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestGate_Middleware(t *testing.T) {
	gate := NewGate(Config{
		AllowedOrigins: []string{"https://example.dev/"},
		MaxBodyBytes:   128,
	}, nil)
	handler := gate.Middleware(echoHandler(t))

	tests := []struct {
		name        string
		body        string
		contentType string
		origin      string
		wantStatus  int
	}{
		{"valid request", `{"name":"Ada","message":"hello"}`, "application/json", "https://example.dev", http.StatusOK},
		{"charset parameter accepted", `{"message":"hi"}`, "application/json; charset=utf-8", "", http.StatusOK},
		{"disallowed origin", `{"message":"hi"}`, "application/json", "https://evil.example", http.StatusForbidden},
		{"wrong content type", `message=hi`, "application/x-www-form-urlencoded", "https://example.dev", http.StatusUnsupportedMediaType},
		{"missing content type", `{"message":"hi"}`, "", "https://example.dev", http.StatusUnsupportedMediaType},
		{"body too large", `{"message":"` + strings.Repeat("a", 200) + `"}`, "application/json", "", http.StatusRequestEntityTooLarge},
		{"script tag", `{"message":"<script>alert(1)</script>"}`, "application/json", "", http.StatusBadRequest},
		{"escaped script tag", `{"message":"\u003cscript\u003ealert(1)"}`, "application/json", "", http.StatusBadRequest},
		{"javascript uri", `{"website":"javascript:alert(1)"}`, "application/json", "", http.StatusBadRequest},
		{"sql union", `{"name":"x' UNION SELECT password FROM users"}`, "application/json", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newRequest(tt.body, tt.contentType, tt.origin))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String(), "body should be restored for the next handler")
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestGate_DefaultsAndEmptyAllowlist(t *testing.T) {
	gate := NewGate(Config{}, nil)

	assert.Equal(t, DefaultMaxBodyBytes, gate.maxBytes)
	assert.True(t, gate.OriginAllowed("https://anything.example"))
	assert.True(t, gate.OriginAllowed(""))
}

func TestSuspicious(t *testing.T) {
	benign := []string{
		`{"message":"I love the union of sets and select features -- great work!"}`,
		`{"message":"Someone = one, onion = two"}`,
		`{"message":"see you; update me soon"}`,
		``,
	}
	for _, body := range benign {
		assert.False(t, Suspicious([]byte(body)), body)
	}

	malicious := []string{
		`{"message":"<img src=x onerror=alert(1)>"}`,
		`{"message":"1' OR '1'='1"}`,
		`{"message":"admin'--"}`,
		`{"message":"x; DROP TABLE users"}`,
		`not json <SCRIPT src=//x>`,
		`{"nested":{"list":["ok","javascript:void(0)"]}}`,
	}
	for _, body := range malicious {
		assert.True(t, Suspicious([]byte(body)), body)
	}
}

func TestFilterSensitiveSettings(t *testing.T) {
	filtered := FilterSensitiveSettings(map[string]string{
		"WEATHER_API_KEY": "abc",
		"SMTP_PASSWORD":   "hunter2",
		"REDIS_PASSWORD":  "",
		"PORT":            "8080",
	})

	assert.Equal(t, Redacted, filtered["WEATHER_API_KEY"])
	assert.Equal(t, Redacted, filtered["SMTP_PASSWORD"])
	assert.Equal(t, "", filtered["REDIS_PASSWORD"], "empty values stay empty so missing config is visible")
	assert.Equal(t, "8080", filtered["PORT"])
	assert.Nil(t, FilterSensitiveSettings(nil))
}

func TestFilterSensitiveFields(t *testing.T) {
	filtered := FilterSensitiveFields(map[string]interface{}{
		"smtp": map[string]interface{}{
			"host":     "mail.example",
			"password": "secret",
		},
		"token": "t",
	})

	smtp := filtered["smtp"].(map[string]interface{})
	assert.Equal(t, "mail.example", smtp["host"])
	assert.Equal(t, Redacted, smtp["password"])
	assert.Equal(t, Redacted, filtered["token"])
}
