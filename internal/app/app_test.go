package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/config"
	"portfolio-api/internal/kvstore"
	"portfolio-api/internal/locks"
	"portfolio-api/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.WarmEnabled = false
	return cfg
}

func TestNew_MemoryStoreDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddress = ""

	app, err := New(cfg)
	require.NoError(t, err)
	defer app.Cleanup()

	assert.IsType(t, &kvstore.MemoryStore{}, app.Store)
	assert.IsType(t, &locks.LocalLocker{}, app.Locker)
	assert.IsType(t, &notify.LogNotifier{}, app.Notifier)
	assert.Nil(t, app.Warmer)
}

func TestNew_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.RedisAddress = mr.Addr()
	cfg.WarmEnabled = true

	app, err := New(cfg)
	require.NoError(t, err)
	defer app.Cleanup()

	assert.IsType(t, &kvstore.RedisStore{}, app.Store)
	assert.IsType(t, &locks.RedsyncLocker{}, app.Locker)
	assert.NotNil(t, app.Warmer)
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddress = "127.0.0.1:1"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_SMTPMisconfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTPEnabled = true
	cfg.SMTPHost = ""

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRouter_Health(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	defer app.Cleanup()

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_UnknownRoute(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	defer app.Cleanup()

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_VisitorsSetsCookie(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	defer app.Cleanup()

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/visitors", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "visitor_id", cookies[0].Name)
}
