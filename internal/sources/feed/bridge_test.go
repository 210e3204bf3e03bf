package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/upstream"
)

const sampleFeed = `{
  "status": "ok",
  "feed": {"title": "dev.to"},
  "items": [
    {
      "title": "Understanding Go contexts",
      "pubDate": "2024-03-01 09:30:00",
      "link": "https://dev.to/me/contexts",
      "author": "me",
      "thumbnail": "",
      "description": "<p>Contexts carry <b>deadlines</b> and cancellation.</p>",
      "categories": ["go", "concurrency"],
      "enclosure": {"link": "https://img.example/1.png", "type": "image/png"}
    },
    {
      "title": "  ",
      "pubDate": "2024-03-02 09:30:00",
      "link": "https://dev.to/me/blank"
    }
  ]
}`

func testBridge(t *testing.T, handler http.HandlerFunc) *Bridge {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := upstream.DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.Retry.MaxAttempts = 1
	return NewBridge(upstream.New(cfg, nil, logging.NewNopLogger()), srv.URL, time.Second)
}

func TestBridge_Fetch(t *testing.T) {
	bridge := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://dev.to/feed/me", r.URL.Query().Get("rss_url"))
		_, _ = w.Write([]byte(sampleFeed))
	})

	items, err := bridge.Fetch(context.Background(), "devto", "https://dev.to/feed/me")
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "Understanding Go contexts", item.Title)
	assert.Equal(t, "devto", item.Source)
	assert.Equal(t, "Contexts carry deadlines and cancellation.", item.Description)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), item.PublishedAt)
	assert.Equal(t, "https://img.example/1.png", item.Thumbnail)
	assert.Equal(t, []string{"go", "concurrency"}, item.Categories)
}

func TestBridge_FetchErrors(t *testing.T) {
	t.Run("bridge reports error", func(t *testing.T) {
		bridge := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"error","message":"rss_url is invalid"}`))
		})
		_, err := bridge.Fetch(context.Background(), "medium", "https://medium.com/feed/@me")
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
	})

	t.Run("http failure", func(t *testing.T) {
		bridge := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := bridge.Fetch(context.Background(), "medium", "https://medium.com/feed/@me")
		assert.Error(t, err)
	})

	t.Run("missing feed url", func(t *testing.T) {
		bridge := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := bridge.Fetch(context.Background(), "medium", "")
		assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	})
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Hello world", Summarize("<p>Hello\n  <i>world</i></p>", 100))

	long := strings.Repeat("word ", 100)
	got := Summarize(long, 50)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 53)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, want, ParseDate("2024-01-02 15:04:05"))
	assert.Equal(t, want, ParseDate("2024-01-02T15:04:05Z"))
	assert.Equal(t, want, ParseDate("Tue, 02 Jan 2024 15:04:05 +0000"))
	assert.True(t, ParseDate("yesterday").IsZero())
}
