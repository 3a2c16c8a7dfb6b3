// Package lookup caches the Rating reference table so each vote can be mapped
// to its surrogate key without a query per message.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"museum-stream-backend/internal/model"
)

// ErrRatingNotFound means the Rating table has no row for a kiosk value.
// It points at missing reference data, not at a malformed message.
var ErrRatingNotFound = errors.New("rating not found")

const ratingsKey = "ratings"

// RatingSource loads the Rating reference table.
type RatingSource interface {
	Ratings(ctx context.Context) ([]model.Rating, error)
}

// table is one load of the Rating table.
type table struct {
	byValue map[int]int64
	rows    []model.Rating
}

// RatingCache maps RatingValue to RatingID.
type RatingCache struct {
	source RatingSource
	store  *cache.Cache
	ttl    time.Duration
}

// NewRatingCache creates an empty cache. A ttl of zero keeps the table for
// the lifetime of the process; Refresh still reloads it on demand.
func NewRatingCache(source RatingSource, ttl time.Duration) *RatingCache {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &RatingCache{
		source: source,
		store:  cache.New(expiration, cleanup),
		ttl:    expiration,
	}
}

// Refresh reloads the table from the source.
func (c *RatingCache) Refresh(ctx context.Context) (map[int]int64, error) {
	t, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return t.byValue, nil
}

func (c *RatingCache) load(ctx context.Context) (*table, error) {
	ratings, err := c.source.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	t, err := newTable(ratings)
	if err != nil {
		return nil, err
	}
	c.store.Set(ratingsKey, t, c.ttl)
	return t, nil
}

func newTable(ratings []model.Rating) (*table, error) {
	t := &table{
		byValue: make(map[int]int64, len(ratings)),
		rows:    make([]model.Rating, len(ratings)),
	}
	copy(t.rows, ratings)
	for _, r := range ratings {
		if id, dup := t.byValue[r.Rating]; dup {
			return nil, fmt.Errorf("rating value %d is mapped twice (ids %d and %d)", r.Rating, id, r.RatingID)
		}
		t.byValue[r.Rating] = r.RatingID
	}
	sort.Slice(t.rows, func(i, j int) bool { return t.rows[i].Rating < t.rows[j].Rating })
	return t, nil
}

// RatingID returns the surrogate key for a kiosk rating value, loading the
// table first if it has not been loaded or has expired.
func (c *RatingCache) RatingID(ctx context.Context, value int) (int64, error) {
	t, err := c.current(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := t.byValue[value]
	if !ok {
		return 0, fmt.Errorf("%w: value %d", ErrRatingNotFound, value)
	}
	return id, nil
}

// Snapshot returns the cached rows ordered by value.
func (c *RatingCache) Snapshot(ctx context.Context) ([]model.Rating, error) {
	t, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Rating, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func (c *RatingCache) current(ctx context.Context) (*table, error) {
	if cached, found := c.store.Get(ratingsKey); found {
		return cached.(*table), nil
	}
	return c.load(ctx)
}
