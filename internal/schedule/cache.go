package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	appLog "rinkcal/internal/log"
	"rinkcal/internal/metrics"
	"rinkcal/internal/model"
)

// RefreshFunc runs one aggregation cycle and returns the new aggregate.
type RefreshFunc func(ctx context.Context) ([]model.Event, error)

// ResultCache holds the most recent aggregate in a single process-wide
// slot with a freshness window.
//
// All access goes through one mutex, so at most one refresh is in flight
// at a time: concurrent callers either block until the in-flight cycle
// finishes and see its result, or read the last good entry. The entry is
// swapped whole on success, so readers never observe a partially-built
// aggregate. When a refresh fails and a prior entry exists, the stale
// entry is served transparently.
type ResultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	refresh RefreshFunc
	now     func() time.Time

	events      []model.Event
	refreshedAt time.Time
	hasEntry    bool
}

// NewResultCache creates an empty cache. ttl is the freshness window;
// an entry older than ttl triggers a new aggregation cycle on read.
func NewResultCache(ttl time.Duration, refresh RefreshFunc) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		refresh: refresh,
		now:     time.Now,
	}
}

// GetOrRefresh returns the cached aggregate if it is still fresh,
// otherwise runs a full aggregation cycle and replaces the entry.
//
// On cycle failure the previous entry, if any, is returned as a stale
// fallback; with no prior entry the failure propagates so the serving
// boundary can distinguish "no data" from "legitimately no events".
func (c *ResultCache) GetOrRefresh(ctx context.Context) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasEntry && c.now().Sub(c.refreshedAt) < c.ttl {
		metrics.RecordCacheHit()
		return c.events, nil
	}

	events, err := c.refresh(ctx)
	metrics.RecordRefresh(err == nil)
	if err != nil {
		if c.hasEntry {
			appLog.Error("refresh failed; serving stale aggregate", err,
				"age", c.now().Sub(c.refreshedAt).Round(time.Second))
			metrics.RecordStaleServed()
			return c.events, nil
		}
		return nil, fmt.Errorf("refresh schedule: %w", err)
	}

	c.events = events
	c.refreshedAt = c.now()
	c.hasEntry = true
	return c.events, nil
}

// LastRefreshed reports when the current entry was built; ok is false
// while the cache is still empty.
func (c *ResultCache) LastRefreshed() (t time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshedAt, c.hasEntry
}
