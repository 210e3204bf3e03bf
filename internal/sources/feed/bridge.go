// Package feed reads RSS and Atom feeds through an RSS-to-JSON bridge (rss2json style)
// and normalizes their entries into sources.Item values.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	strip "github.com/grokify/html-strip-tags-go"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/sources"
	"portfolio-api/internal/upstream"
)

const (
	// DefaultBridgeURL is the public rss2json endpoint
	DefaultBridgeURL = "https://api.rss2json.com/v1/api.json"
	// DefaultTimeout bounds a single feed read
	DefaultTimeout = 10 * time.Second

	provider       = "rss-bridge"
	maxDescription = 280
	pubDateLayout  = "2006-01-02 15:04:05"
)

// Bridge fetches feeds through the bridge endpoint
type Bridge struct {
	client  *upstream.Client
	baseURL string
	timeout time.Duration
}

// NewBridge creates a bridge reader. Empty values fall back to the defaults.
func NewBridge(client *upstream.Client, baseURL string, timeout time.Duration) *Bridge {
	if baseURL == "" {
		baseURL = DefaultBridgeURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{client: client, baseURL: baseURL, timeout: timeout}
}

type bridgeResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Items   []bridgeItem `json:"items"`
}

type bridgeItem struct {
	Title       string   `json:"title"`
	PubDate     string   `json:"pubDate"`
	Link        string   `json:"link"`
	GUID        string   `json:"guid"`
	Author      string   `json:"author"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Categories  []string `json:"categories"`
	Enclosure   struct {
		Link string `json:"link"`
		Type string `json:"type"`
	} `json:"enclosure"`
}

// Fetch reads feedURL and labels every item with source
func (b *Bridge) Fetch(ctx context.Context, source, feedURL string) ([]sources.Item, error) {
	if feedURL == "" {
		return nil, errors.ConfigError(fmt.Sprintf("no feed url configured for %s", source))
	}

	endpoint := fmt.Sprintf("%s?rss_url=%s", b.baseURL, url.QueryEscape(feedURL))

	var resp bridgeResponse
	err := b.client.GetJSON(ctx, upstream.Request{
		Provider: provider,
		URL:      endpoint,
		Timeout:  b.timeout,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "ok" {
		return nil, errors.UpstreamError(provider, 0, fmt.Errorf("feed %s: %s", source, resp.Message))
	}

	items := make([]sources.Item, 0, len(resp.Items))
	for _, raw := range resp.Items {
		if strings.TrimSpace(raw.Title) == "" {
			continue
		}
		items = append(items, normalize(source, raw))
	}
	return items, nil
}

func normalize(source string, raw bridgeItem) sources.Item {
	link := raw.Link
	if link == "" {
		link = raw.GUID
	}

	description := raw.Description
	if strings.TrimSpace(description) == "" {
		description = raw.Content
	}

	thumbnail := raw.Thumbnail
	if thumbnail == "" && strings.HasPrefix(raw.Enclosure.Type, "image/") {
		thumbnail = raw.Enclosure.Link
	}

	return sources.Item{
		Title:       strings.TrimSpace(raw.Title),
		Link:        link,
		Description: Summarize(description, maxDescription),
		PublishedAt: ParseDate(raw.PubDate),
		Source:      source,
		Author:      strings.TrimSpace(raw.Author),
		Thumbnail:   thumbnail,
		Categories:  raw.Categories,
	}
}

// Summarize strips markup, collapses whitespace and cuts the text at max runes on a word
// boundary.
func Summarize(html string, max int) string {
	text := strings.Join(strings.Fields(strip.StripTags(html)), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

// ParseDate understands the bridge's own layout plus the RSS and ISO layouts some
// bridges pass through. Unparseable dates become the zero time and sort last.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{pubDateLayout, time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
