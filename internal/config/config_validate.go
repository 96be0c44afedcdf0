// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package config

import (
	"fmt"
	"math"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	if err := c.validateTrending(); err != nil {
		return err
	}
	return c.validateSuggest()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required (use DUCKDB_PATH or config file)")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("api.default_page_size must be >= 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size (%d) must be >= api.default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateRanking() error {
	r := &c.Ranking
	for name, w := range map[string]float64{
		"ranking.weight_like":     r.WeightLike,
		"ranking.weight_comment":  r.WeightComment,
		"ranking.weight_repost":   r.WeightRepost,
		"ranking.weight_bookmark": r.WeightBookmark,
		"ranking.weight_quote":    r.WeightQuote,
	} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s must be finite and >= 0, got %v", name, w)
		}
	}
	if r.Gravity <= 0 {
		return fmt.Errorf("ranking.gravity must be positive, got %v", r.Gravity)
	}
	if r.FreshnessHours <= 0 {
		return fmt.Errorf("ranking.freshness_hours must be positive, got %v", r.FreshnessHours)
	}
	if r.WindowDays < 1 {
		return fmt.Errorf("ranking.window_days must be >= 1, got %d", r.WindowDays)
	}
	if r.MinFeedItems < 0 {
		return fmt.Errorf("ranking.min_feed_items must be >= 0, got %d", r.MinFeedItems)
	}
	if r.PreferenceBoost < 1 || r.PremiumBoost < 1 || r.NewCreatorMaxBoost < 1 {
		return fmt.Errorf("ranking boost multipliers must be >= 1.0")
	}
	if r.NewCreatorThresholdDays < 1 {
		return fmt.Errorf("ranking.new_creator_threshold_days must be >= 1, got %d", r.NewCreatorThresholdDays)
	}
	if r.DiscoverySlots < 0 {
		return fmt.Errorf("ranking.discovery_slots must be >= 0, got %d", r.DiscoverySlots)
	}
	if r.MaxItemsPerAuthor < 1 {
		return fmt.Errorf("ranking.max_items_per_author must be >= 1, got %d", r.MaxItemsPerAuthor)
	}
	if r.SelfEngagementDiscount < 0 || r.SelfEngagementDiscount > 1 {
		return fmt.Errorf("ranking.self_engagement_discount must be in [0, 1], got %v", r.SelfEngagementDiscount)
	}
	if r.CacheTTL <= 0 {
		return fmt.Errorf("ranking.cache_ttl must be positive, got %s", r.CacheTTL)
	}
	return nil
}

func (c *Config) validateTrending() error {
	t := &c.Trending
	if t.Gravity <= 0 {
		return fmt.Errorf("trending.gravity must be positive, got %v", t.Gravity)
	}
	if t.WindowDays < 1 {
		return fmt.Errorf("trending.window_days must be >= 1, got %d", t.WindowDays)
	}
	if t.OverfetchFactor < 1 {
		return fmt.Errorf("trending.overfetch_factor must be >= 1, got %d", t.OverfetchFactor)
	}
	if t.RecentHours < 1 || t.OlderHours <= t.RecentHours {
		return fmt.Errorf("trending velocity windows invalid: recent=%dh older=%dh", t.RecentHours, t.OlderHours)
	}
	if t.MaxBoost < 1 {
		return fmt.Errorf("trending.max_boost must be >= 1.0, got %v", t.MaxBoost)
	}
	return nil
}

// signalWeightTolerance allows for float assembly of the signal weights.
const signalWeightTolerance = 1e-9

func (c *Config) validateSuggest() error {
	s := &c.Suggest
	sum := s.GraphWeight + s.PopularityWeight + s.RelevanceWeight + s.DiversityWeight
	if math.Abs(sum-1.0) > signalWeightTolerance {
		return fmt.Errorf("suggest signal weights must sum to 1.0, got %v", sum)
	}
	for name, w := range map[string]float64{
		"suggest.graph_weight":      s.GraphWeight,
		"suggest.popularity_weight": s.PopularityWeight,
		"suggest.relevance_weight":  s.RelevanceWeight,
		"suggest.diversity_weight":  s.DiversityWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be >= 0, got %v", name, w)
		}
	}
	if s.BookmarkFactor < 0 {
		return fmt.Errorf("suggest.bookmark_factor must be >= 0, got %v", s.BookmarkFactor)
	}
	if s.DismissalDays < 0 {
		return fmt.Errorf("suggest.dismissal_days must be >= 0, got %d", s.DismissalDays)
	}
	if s.CandidatePoolSize < 1 {
		return fmt.Errorf("suggest.candidate_pool_size must be >= 1, got %d", s.CandidatePoolSize)
	}
	return nil
}
