// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// canonicalCacheKey identifies the unfiltered first-page candidate pool.
const canonicalCacheKey = "feed:for_you:unfiltered"

// CacheKey derives the cache key from the active preference filters.
// Only the unfiltered pool is cacheable; any filter returns an empty
// key, which bypasses the cache.
func CacheKey(tools, stacks []string) string {
	if len(tools) > 0 || len(stacks) > 0 {
		return ""
	}
	return canonicalCacheKey
}

// Cache is the short-TTL, compute-once cache for the unfiltered,
// cursor-less first-page candidate pool.
//
// Readers of a fresh entry never block. On a miss, concurrent callers
// for the same key collapse into a single computation via
// singleflight; the computation runs detached from the triggering
// request's cancellation so a fill started by a race-winner completes
// for the benefit of subsequent requests.
//
// Cached items are deep-copied out, because callers mutate items
// per-request (viewer flags, page assembly).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	group   singleflight.Group
}

type cacheEntry struct {
	items     []*models.FeedItem
	expiresAt time.Time
}

// NewCache creates a feed cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// GetOrCompute returns the cached candidate pool for key, computing it
// at most once per expiry across all concurrent callers.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]*models.FeedItem, error)) ([]*models.FeedItem, error) {
	if items, ok := c.lookup(key); ok {
		metrics.CacheHits.Inc()
		return cloneItems(items), nil
	}
	metrics.CacheMisses.Inc()

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// A fill may have landed while this caller queued for the flight.
		if items, ok := c.lookup(key); ok {
			return items, nil
		}
		// The fill must outlive the triggering request's cancellation.
		items, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, items)
		return items, nil
	})
	if shared {
		metrics.CacheSharedFills.Inc()
	}
	if err != nil {
		return nil, err
	}
	return cloneItems(v.([]*models.FeedItem)), nil
}

// EvictExpired removes expired entries and returns how many were evicted.
// Called periodically by the cache janitor service.
func (c *Cache) EvictExpired() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.CacheEvictions.Add(float64(evicted))
	}
	return evicted
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) lookup(key string) ([]*models.FeedItem, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.items, true
}

func (c *Cache) store(key string, items []*models.FeedItem) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{items: items, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// cloneItems deep-copies a candidate pool so per-request mutation never
// touches the cached items.
func cloneItems(items []*models.FeedItem) []*models.FeedItem {
	out := make([]*models.FeedItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
