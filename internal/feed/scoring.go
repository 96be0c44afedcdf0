// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package feed implements the personalized feed pipeline: composite
// scoring with time decay, layered score boosting, per-author
// diversification, discovery-slot allocation, opaque cursor pagination,
// and the single-flight first-page cache.
package feed

import (
	"math"
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/models"
)

// Scorer computes composite relevance scores for feed candidates.
//
// Posts, projects, and reposts share one formula:
//
//	weighted  = likes*W_like + comments*W_comment + reposts*W_repost
//	          + bookmarks*W_bookmark + quotes*W_quote
//	freshness = max(0, F_base * (1 - age_hours/F_hours))
//	score     = (weighted + freshness) / (age_hours + 2)^gravity
//
// Gigs use a dampened formula so listings don't crowd out content:
//
//	score = (bids*W_bid + views*W_view) * dampening / (age_hours + 2)^gravity
//
// Scores are always finite and >= 0.
type Scorer struct {
	cfg *config.RankingConfig
}

// NewScorer creates a scorer with the given ranking configuration.
func NewScorer(cfg *config.RankingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the full time-decayed score for an item at the given
// reference time and returns it. Callers assign the result to
// item.Score; the scorer itself never mutates items.
func (s *Scorer) Score(item *models.FeedItem, now time.Time) float64 {
	ageHours := now.Sub(item.SortDate).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	divisor := math.Pow(ageHours+2, s.cfg.Gravity)

	if item.Kind == models.KindGig {
		bids := s.effectiveCount(item.Engagement.Bids, item.SelfEngagement.Bids)
		views := s.effectiveCount(item.Engagement.Views, item.SelfEngagement.Views)
		return (bids*s.cfg.GigBidWeight + views*s.cfg.GigViewWeight) * s.cfg.GigDampening / divisor
	}

	freshness := s.cfg.FreshnessBase * (1 - ageHours/s.cfg.FreshnessHours)
	if freshness < 0 {
		freshness = 0
	}
	return (s.weighted(item) + freshness) / divisor
}

// EngagementScore computes the decay-free engagement score used for
// the older backfill pool, which guarantees feed density during
// low-activity periods.
func (s *Scorer) EngagementScore(item *models.FeedItem) float64 {
	if item.Kind == models.KindGig {
		bids := s.effectiveCount(item.Engagement.Bids, item.SelfEngagement.Bids)
		views := s.effectiveCount(item.Engagement.Views, item.SelfEngagement.Views)
		return (bids*s.cfg.GigBidWeight + views*s.cfg.GigViewWeight) * s.cfg.GigDampening
	}
	return s.weighted(item)
}

// TimeDecay returns the normalized decay factor at the given age:
// 1.0 at age zero, strictly decreasing thereafter.
func (s *Scorer) TimeDecay(ageHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Pow(2/(ageHours+2), s.cfg.Gravity)
}

// weighted sums the engagement counters under the configured weights,
// after the self-engagement discount.
func (s *Scorer) weighted(item *models.FeedItem) float64 {
	e, self := item.Engagement, item.SelfEngagement
	return s.effectiveCount(e.Likes, self.Likes)*s.cfg.WeightLike +
		s.effectiveCount(e.Comments, self.Comments)*s.cfg.WeightComment +
		s.effectiveCount(e.Reposts, self.Reposts)*s.cfg.WeightRepost +
		s.effectiveCount(e.Bookmarks, self.Bookmarks)*s.cfg.WeightBookmark +
		s.effectiveCount(e.Quotes, self.Quotes)*s.cfg.WeightQuote
}

// effectiveCount discounts the author's engagement with their own
// content. The discount defaults to 1.0 (fully discounted) but stays
// configurable; partial self-engagement credit is an open tuning
// question.
func (s *Scorer) effectiveCount(total, self int) float64 {
	v := float64(total) - s.cfg.SelfEngagementDiscount*float64(self)
	if v < 0 {
		return 0
	}
	return v
}
