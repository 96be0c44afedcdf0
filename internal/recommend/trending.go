// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package recommend implements the trending-content ranking and the
// who-to-follow suggestion engine.
//
// Both computations are request-scoped and side-effect free: they read
// from their source interfaces, score in memory, and return. No model
// state is kept between requests.
package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// TrendingSource supplies trending candidates and engagement-velocity
// aggregates from the content store.
type TrendingSource interface {
	// TrendingProjects returns projects created after since with
	// engagement counters, ordered by raw engagement, capped at limit.
	TrendingProjects(ctx context.Context, since time.Time, limit int) ([]*models.FeedItem, error)

	// EngagementWindows returns, for each id, the engagement event
	// counts in the recent and older buckets in one batch.
	EngagementWindows(ctx context.Context, ids []string, recentStart, olderStart, now time.Time) (map[string]models.EngagementWindow, error)
}

// Trending ranks projects by engagement-weighted score with a velocity
// boost that rewards accelerating content.
type Trending struct {
	source TrendingSource
	cfg    *config.TrendingConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewTrending creates a trending ranker.
func NewTrending(source TrendingSource, cfg *config.TrendingConfig, logger zerolog.Logger) *Trending {
	return &Trending{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "trending").Logger(),
		now:    time.Now,
	}
}

// Projects returns the top trending projects.
//
// Candidates are over-fetched (OverfetchFactor x limit) because the
// velocity boost reranks the pool before final truncation.
func (t *Trending) Projects(ctx context.Context, limit int) ([]*models.FeedItem, error) {
	now := t.now()
	since := now.AddDate(0, 0, -t.cfg.WindowDays)

	candidates, err := t.source.TrendingProjects(ctx, since, limit*t.cfg.OverfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("trending candidates: %w", err)
	}
	metrics.FeedCandidates.WithLabelValues("trending").Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return []*models.FeedItem{}, nil
	}

	for _, item := range candidates {
		item.Score = t.baseScore(item, now)
	}
	t.applyVelocityBoost(ctx, candidates, now)

	sortByScoreDesc(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// baseScore is the engagement-weighted, quality-adjusted, time-decayed
// trending score.
func (t *Trending) baseScore(item *models.FeedItem, now time.Time) float64 {
	ageHours := now.Sub(item.SortDate).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	e := item.Engagement
	weighted := float64(e.Likes)*t.cfg.WeightLike +
		float64(e.Comments)*t.cfg.WeightComment +
		float64(e.Reposts)*t.cfg.WeightRepost +
		float64(e.Bookmarks)*t.cfg.WeightBookmark +
		float64(e.Quotes)*t.cfg.WeightQuote

	return weighted * t.qualityMultiplier(item) / math.Pow(ageHours+2, t.cfg.Gravity)
}

// qualityMultiplier rewards presentation completeness: images, a
// substantive description, and declared tech stacks.
func (t *Trending) qualityMultiplier(item *models.FeedItem) float64 {
	q := 1.0
	if item.HasImages {
		q += t.cfg.QualityImageBonus
	}
	if len(item.Description) > t.cfg.QualityDescLength {
		q += t.cfg.QualityDescBonus
	}
	if len(item.TechStacks) > 0 {
		q += t.cfg.QualityStackBonus
	}
	return q
}

// applyVelocityBoost multiplies each score by min(1 + velocity,
// MaxBoost), where velocity = recent / (older + 1). A failed aggregate
// lookup leaves the base scores intact.
func (t *Trending) applyVelocityBoost(ctx context.Context, candidates []*models.FeedItem, now time.Time) {
	ids := make([]string, len(candidates))
	for i, item := range candidates {
		ids[i] = item.ID
	}

	recentStart := now.Add(-time.Duration(t.cfg.RecentHours) * time.Hour)
	olderStart := now.Add(-time.Duration(t.cfg.OlderHours) * time.Hour)
	windows, err := t.source.EngagementWindows(ctx, ids, recentStart, olderStart, now)
	if err != nil {
		t.logger.Warn().Err(err).Msg("engagement window lookup failed, serving base trending scores")
		return
	}

	for _, item := range candidates {
		w, ok := windows[item.ID]
		if !ok {
			continue
		}
		velocity := float64(w.Recent) / (float64(w.Older) + 1)
		boost := 1 + velocity
		if boost > t.cfg.MaxBoost {
			boost = t.cfg.MaxBoost
		}
		item.Score *= boost
	}
}
