package cache

import "time"

// TTL tiers. Pick the tier that matches how fast the data goes stale.
const (
	// TTLShort is for fast-changing data such as current weather
	TTLShort = 5 * time.Minute
	// TTLMedium is for news headlines
	TTLMedium = 30 * time.Minute
	// TTLLong is for blog posts and location lookups
	TTLLong = time.Hour
	// TTLVeryLong is for data that changes a few times a day at most
	TTLVeryLong = 24 * time.Hour
	// TTLWeek is for effectively static lookups
	TTLWeek = 7 * 24 * time.Hour
)
