// Package ratelimit implements fixed-window request limiting per client and endpoint.
//
// A window is a counter in the key-value store at ratelimit:<endpoint>:<ip>. The first hit
// creates it with an expiry equal to the window length; each further hit increments it.
// Requests are allowed while the count is at most the policy maximum. When the counter
// expires the next request starts a new window at 1.
//
// The counter update is a single atomic store operation, so concurrent requests from the
// same client can never both observe the last free slot.
//
// When the store is unavailable the limiter fails open and logs a warning, unless the
// policy sets FailClosed.
//
// Usage:
//
//	limiter := ratelimit.New(store, logger)
//	router.Handle("/api/contact", limiter.Middleware(ratelimit.Contact, false)(handler))
package ratelimit
