// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package config loads and validates Feedrank configuration.
//
// Configuration is layered with koanf: struct defaults first, then an
// optional YAML file, then environment variables (highest priority).
// Every ranking tunable has a stated default so the service runs with
// no configuration at all.
package config

import "time"

// Config is the root configuration for the Feedrank service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	API      APIConfig      `koanf:"api"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Trending TrendingConfig `koanf:"trending"`
	Suggest  SuggestConfig  `koanf:"suggest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB connection settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// RankingConfig holds every tunable of the feed scoring, boost, and
// page-assembly pipeline. Defaults match production behavior; tests
// override individual fields.
type RankingConfig struct {
	// Engagement weights for the composite score.
	WeightLike     float64 `koanf:"weight_like"`
	WeightComment  float64 `koanf:"weight_comment"`
	WeightRepost   float64 `koanf:"weight_repost"`
	WeightBookmark float64 `koanf:"weight_bookmark"`
	WeightQuote    float64 `koanf:"weight_quote"`

	// Gig scoring uses a separate formula so listings don't crowd out
	// posts and projects.
	GigBidWeight  float64 `koanf:"gig_bid_weight"`
	GigViewWeight float64 `koanf:"gig_view_weight"`
	GigDampening  float64 `koanf:"gig_dampening"`

	// Gravity is the time-decay exponent.
	Gravity float64 `koanf:"gravity"`

	// FreshnessBase / FreshnessHours control the freshness bonus:
	// max(0, base * (1 - age_hours/hours)).
	FreshnessBase  float64 `koanf:"freshness_base"`
	FreshnessHours float64 `koanf:"freshness_hours"`

	// WindowDays is the recent candidate window.
	WindowDays int `koanf:"window_days"`

	// MinFeedItems triggers the older backfill pool when the recent
	// window yields fewer candidates (first page only).
	MinFeedItems int `koanf:"min_feed_items"`

	// Boost multipliers.
	PreferenceBoost    float64 `koanf:"preference_boost"`
	PremiumBoost       float64 `koanf:"premium_boost"`
	NewCreatorMaxBoost float64 `koanf:"new_creator_max_boost"`

	// NewCreatorThresholdDays is the account age at which the
	// new-creator boost decays back to 1.0.
	NewCreatorThresholdDays int `koanf:"new_creator_threshold_days"`

	// Discovery allocation.
	DiscoverySlots        int `koanf:"discovery_slots"`
	SmallCreatorFollowers int `koanf:"small_creator_followers"`

	// MaxItemsPerAuthor caps how many items a single author may
	// occupy within one page.
	MaxItemsPerAuthor int `koanf:"max_items_per_author"`

	// SelfEngagementDiscount is the fraction of an author's engagement
	// with their own content that is discounted at scoring time.
	// 1.0 fully discounts self engagement. Kept configurable; partial
	// discounting is an open tuning question.
	SelfEngagementDiscount float64 `koanf:"self_engagement_discount"`

	// CacheTTL is the unfiltered-first-page cache lifetime.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// TrendingConfig holds the trending-projects ranking tunables.
type TrendingConfig struct {
	WeightLike     float64 `koanf:"weight_like"`
	WeightComment  float64 `koanf:"weight_comment"`
	WeightRepost   float64 `koanf:"weight_repost"`
	WeightBookmark float64 `koanf:"weight_bookmark"`
	WeightQuote    float64 `koanf:"weight_quote"`

	Gravity    float64 `koanf:"gravity"`
	WindowDays int     `koanf:"window_days"`

	// OverfetchFactor is how many candidates are pulled per requested
	// result before velocity reranking.
	OverfetchFactor int `koanf:"overfetch_factor"`

	// Velocity boost: recent engagement (last RecentHours) divided by
	// older engagement (RecentHours..OlderHours), capped at MaxBoost.
	RecentHours int     `koanf:"recent_hours"`
	OlderHours  int     `koanf:"older_hours"`
	MaxBoost    float64 `koanf:"max_boost"`

	// Quality multiplier increments.
	QualityImageBonus float64 `koanf:"quality_image_bonus"`
	QualityDescBonus  float64 `koanf:"quality_desc_bonus"`
	QualityStackBonus float64 `koanf:"quality_stack_bonus"`
	QualityDescLength int     `koanf:"quality_desc_length"`
}

// SuggestConfig holds who-to-follow signal weights and thresholds.
// The four signal weights must sum to exactly 1.0.
type SuggestConfig struct {
	GraphWeight      float64 `koanf:"graph_weight"`
	PopularityWeight float64 `koanf:"popularity_weight"`
	RelevanceWeight  float64 `koanf:"relevance_weight"`
	DiversityWeight  float64 `koanf:"diversity_weight"`

	// BookmarkFactor is the extra weight of bookmarked-creator counts
	// in the graph signal relative to liked-creator counts.
	BookmarkFactor float64 `koanf:"bookmark_factor"`

	// DismissalDays is how long a dismissed suggestion stays excluded.
	DismissalDays int `koanf:"dismissal_days"`

	// Cold start: viewers with at most ColdStartMaxLikes likes and no
	// follows receive the popular-creators fallback instead of the
	// multi-signal path.
	ColdStartMaxLikes int `koanf:"cold_start_max_likes"`

	// PopularActiveDays bounds the fallback to recently active users.
	PopularActiveDays int `koanf:"popular_active_days"`

	// CandidatePoolSize bounds the raw candidate query.
	CandidatePoolSize int `koanf:"candidate_pool_size"`
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3861,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/feedrank.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Ranking: RankingConfig{
			WeightLike:     1.0,
			WeightComment:  10.0,
			WeightRepost:   5.0,
			WeightBookmark: 4.0,
			WeightQuote:    8.0,

			GigBidWeight:  15.0,
			GigViewWeight: 0.5,
			GigDampening:  0.5,

			Gravity:        1.8,
			FreshnessBase:  10.0,
			FreshnessHours: 6,

			WindowDays:   7,
			MinFeedItems: 30,

			PreferenceBoost:         1.5,
			PremiumBoost:            1.3,
			NewCreatorMaxBoost:      1.8,
			NewCreatorThresholdDays: 30,

			DiscoverySlots:        2,
			SmallCreatorFollowers: 100,
			MaxItemsPerAuthor:     3,

			SelfEngagementDiscount: 1.0, // fully discount self engagement

			CacheTTL: 60 * time.Second,
		},
		Trending: TrendingConfig{
			WeightLike:     1.0,
			WeightComment:  13.5,
			WeightRepost:   20.0,
			WeightBookmark: 10.0,
			WeightQuote:    15.0,

			Gravity:         1.8,
			WindowDays:      14,
			OverfetchFactor: 3,

			RecentHours: 6,
			OlderHours:  24,
			MaxBoost:    3.0,

			QualityImageBonus: 0.1,
			QualityDescBonus:  0.1,
			QualityStackBonus: 0.1,
			QualityDescLength: 100,
		},
		Suggest: SuggestConfig{
			GraphWeight:      0.35,
			PopularityWeight: 0.25,
			RelevanceWeight:  0.25,
			DiversityWeight:  0.15,

			BookmarkFactor: 2.0,

			DismissalDays:     30,
			ColdStartMaxLikes: 3,
			PopularActiveDays: 7,
			CandidatePoolSize: 500,
		},
	}
}
