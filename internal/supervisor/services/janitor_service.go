// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package services

import (
	"context"
	"time"

	"github.com/tomtom215/feedrank/internal/logging"
)

// Sweeper is the cache surface the janitor drives.
type Sweeper interface {
	EvictExpired() int
	TTL() time.Duration
}

// CacheJanitorService periodically evicts expired feed cache entries.
// Reads already ignore expired entries; the janitor only bounds the
// memory held by stale pages between requests.
type CacheJanitorService struct {
	cache    Sweeper
	interval time.Duration
}

// NewCacheJanitorService creates the janitor. The sweep interval
// defaults to the cache TTL.
func NewCacheJanitorService(cache Sweeper, interval time.Duration) *CacheJanitorService {
	if interval <= 0 {
		interval = cache.TTL()
	}
	return &CacheJanitorService{cache: cache, interval: interval}
}

// Serve implements suture.Service.
func (j *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if evicted := j.cache.EvictExpired(); evicted > 0 {
				logging.Debug().Int("evicted", evicted).Msg("Swept expired feed cache entries")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (j *CacheJanitorService) String() string {
	return "cache-janitor"
}
