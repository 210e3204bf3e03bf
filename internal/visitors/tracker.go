// Package visitors counts unique visitors and tracks who is active right now.
package visitors

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/lucsky/cuid"

	"portfolio-api/internal/common/cache"
	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/kvstore"
)

const (
	// TotalKey holds the all-time unique visitor count
	TotalKey = "visitors:total"
	// SessionTTL is how long a visitor counts as active after its last request
	SessionTTL = 5 * time.Minute
	// DefaultSeed is the starting value of the total counter
	DefaultSeed = 100
)

// cuid ids are a 'c' followed by lowercase base36
var idPattern = regexp.MustCompile(`^c[0-9a-z]{20,32}$`)

// Visit is the tracker's answer for one request
type Visit struct {
	VisitorID      string `json:"visitorId"`
	IsNewVisitor   bool   `json:"isNewVisitor"`
	TotalVisitors  int64  `json:"totalVisitors"`
	ActiveVisitors int    `json:"activeVisitors"`
}

// Tracker counts visitors in the shared store. Once a new identity has been
// counted, later store failures only degrade the answer so the id still reaches
// the client and is not counted again.
type Tracker struct {
	store  kvstore.Store
	logger logging.Logger
	seed   int64
}

// NewTracker creates a tracker whose total counter starts at seed
func NewTracker(store kvstore.Store, seed int64, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Component("visitors")
	}
	if seed < 0 {
		seed = DefaultSeed
	}
	return &Tracker{store: store, logger: logger, seed: seed}
}

// ValidID reports whether id has the shape of an identifier this tracker issued
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Track records a request from the visitor identified by existingID. An empty or
// malformed id mints a new identity and counts it once toward the total.
func (t *Tracker) Track(ctx context.Context, existingID string) (*Visit, error) {
	visit := &Visit{VisitorID: existingID}

	if !ValidID(existingID) {
		visit.VisitorID = cuid.New()
		visit.IsNewVisitor = true

		if err := t.seedTotal(ctx); err != nil {
			return nil, err
		}

		total, err := t.store.Incr(ctx, TotalKey)
		if err != nil {
			return nil, errors.StoreError("increment visitor total", err)
		}
		visit.TotalVisitors = total

		t.logger.WithContext(ctx).Debug("New visitor",
			logging.String("visitor_id", visit.VisitorID),
			logging.Int64("total", total),
		)
	}

	log := t.logger.WithContext(ctx)

	if err := t.store.Set(ctx, cache.SessionKey(visit.VisitorID), []byte("1"), SessionTTL); err != nil {
		log.Warn("Failed to refresh visitor session",
			logging.String("visitor_id", visit.VisitorID),
			logging.Err(err),
		)
	}

	if !visit.IsNewVisitor {
		total, err := t.Total(ctx)
		if err != nil {
			return nil, err
		}
		visit.TotalVisitors = total
	}

	active, err := t.Active(ctx)
	if err != nil {
		log.Warn("Failed to count active visitors", logging.Err(err))
		active = 1
	}
	visit.ActiveVisitors = active

	return visit, nil
}

// Total returns the unique visitor count, seeding it on first use
func (t *Tracker) Total(ctx context.Context) (int64, error) {
	if err := t.seedTotal(ctx); err != nil {
		return 0, err
	}

	data, err := t.store.Get(ctx, TotalKey)
	if err != nil {
		return 0, errors.StoreError("read visitor total", err)
	}

	total, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, errors.StoreError("parse visitor total", err)
	}
	return total, nil
}

// Active counts live sessions. It never reports fewer than one, since the caller is active.
func (t *Tracker) Active(ctx context.Context) (int, error) {
	keys, err := t.store.Keys(ctx, cache.PrefixSession)
	if err != nil {
		return 0, errors.StoreError("count active visitors", err)
	}
	if len(keys) < 1 {
		return 1, nil
	}
	return len(keys), nil
}

func (t *Tracker) seedTotal(ctx context.Context) error {
	_, err := t.store.SetNX(ctx, TotalKey, []byte(strconv.FormatInt(t.seed, 10)), 0)
	if err != nil {
		return errors.StoreError("seed visitor total", err)
	}
	return nil
}
