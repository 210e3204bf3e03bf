// Package cache is the get-or-compute memoization layer in front of the key-value store.
//
// Values are JSON-encoded and stored under deterministic keys built by the functions in
// keys.go, with a TTL picked from the named tiers in ttl.go so call sites state intent:
//
//	weather, err := cache.GetOrSet(ctx, c, cache.WeatherKey(lat, lon), cache.TTLShort,
//		func(ctx context.Context) (Weather, error) {
//			return provider.Current(ctx, lat, lon)
//		})
//
// GetOrSet does not take a lock: concurrent misses on the same key may each run compute
// and the last write wins. Store failures never fail a request; a failed read is a miss
// and a failed write is logged and dropped. Only a compute error is returned, and in that
// case nothing is written.
package cache
