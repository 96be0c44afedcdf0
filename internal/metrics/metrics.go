// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package metrics provides Prometheus instrumentation for Feedrank:
// feed request latency and volume per surface, candidate pool sizes,
// feed cache efficiency, and store query performance.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed / recommendation surfaces.
	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_request_duration_seconds",
			Help:    "Duration of ranking requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"surface"}, // "for_you", "following", "trending", "suggested_users"
	)

	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_requests_total",
			Help: "Total ranking requests by surface and status code",
		},
		[]string{"surface", "status"},
	)

	FeedCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_candidate_pool_size",
			Help:    "Candidate pool size before page assembly",
			Buckets: []float64{0, 10, 30, 100, 300, 1000, 3000},
		},
		[]string{"surface"},
	)

	// Feed cache.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_cache_hits_total",
			Help: "Total feed cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_cache_misses_total",
			Help: "Total feed cache misses",
		},
	)

	CacheSharedFills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_cache_shared_fills_total",
			Help: "Concurrent callers that waited on an in-flight cache fill instead of recomputing",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_cache_evictions_total",
			Help: "Total expired feed cache entries evicted",
		},
	)

	// Store (DuckDB) queries.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_store_query_duration_seconds",
			Help:    "Duration of DuckDB store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_store_query_errors_total",
			Help: "Total DuckDB store query errors",
		},
		[]string{"query"},
	)
)

// ObserveRequest records one ranking request.
func ObserveRequest(surface string, status int, start time.Time) {
	FeedRequestDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
	FeedRequestsTotal.WithLabelValues(surface, strconv.Itoa(status)).Inc()
}

// ObserveStoreQuery records one store query, tagging errors separately.
func ObserveStoreQuery(query string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(query).Inc()
	}
}
