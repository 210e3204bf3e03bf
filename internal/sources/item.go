package sources

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Item is a normalized blog post or news article
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
}

// FeedResult is the payload handed to the HTTP boundary for list endpoints
type FeedResult struct {
	Items     []Item    `json:"items"`
	FetchedAt time.Time `json:"fetchedAt"`
	Degraded  bool      `json:"degraded"`
}

// Feed flattens an item result. A failed result yields an empty, degraded feed.
func Feed(r Result[[]Item]) FeedResult {
	items := r.Value
	if items == nil {
		items = []Item{}
	}
	return FeedResult{
		Items:     items,
		FetchedAt: r.FetchedAt,
		Degraded:  r.Status != StatusFresh,
	}
}

// SortByDate orders items newest first. Items with equal dates keep their input order.
func SortByDate(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// Limit truncates items to at most n
func Limit(items []Item, n int) []Item {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// Merge concatenates per-source results and drops items that point at the
// same article. Items without a link are keyed by title.
func Merge(results [][]Item) []Item {
	merged := lo.Flatten(results)
	return lo.UniqBy(merged, func(it Item) string {
		if it.Link != "" {
			return strings.TrimSuffix(strings.ToLower(it.Link), "/")
		}
		return "title:" + strings.ToLower(strings.TrimSpace(it.Title))
	})
}
