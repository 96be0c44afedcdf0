// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/models"
)

// testRankingConfig returns the production ranking defaults for tests.
func testRankingConfig() *config.RankingConfig {
	return &config.RankingConfig{
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

		SelfEngagementDiscount: 1.0,

		CacheTTL: 60 * time.Second,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScorePostAtAgeZero(t *testing.T) {
	s := NewScorer(testRankingConfig())
	now := time.Now()

	item := &models.FeedItem{
		Kind:       models.KindPost,
		SortDate:   now,
		Engagement: models.Engagement{Likes: 10, Comments: 1},
	}

	// weighted = 10*1 + 1*10 = 20; freshness = 10 at age zero.
	want := (20.0 + 10.0) / math.Pow(2, 1.8)
	if got := s.Score(item, now); !almostEqual(got, want) {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScoreGigFormula(t *testing.T) {
	s := NewScorer(testRankingConfig())
	now := time.Now()

	item := &models.FeedItem{
		Kind:       models.KindGig,
		SortDate:   now.Add(-2 * time.Hour),
		Engagement: models.Engagement{Bids: 2, Views: 100},
	}

	// (2*15 + 100*0.5) * 0.5 = 40, divided by (2+2)^1.8.
	want := 40.0 / math.Pow(4, 1.8)
	if got := s.Score(item, now); !almostEqual(got, want) {
		t.Errorf("gig Score = %v, want %v", got, want)
	}
}

func TestScoreFreshnessClampsToZero(t *testing.T) {
	s := NewScorer(testRankingConfig())
	now := time.Now()

	// 12 hours old is past the 6-hour freshness window, so the bonus
	// must be zero rather than negative.
	item := &models.FeedItem{
		Kind:       models.KindPost,
		SortDate:   now.Add(-12 * time.Hour),
		Engagement: models.Engagement{Likes: 10},
	}

	want := 10.0 / math.Pow(14, 1.8)
	if got := s.Score(item, now); !almostEqual(got, want) {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScoreFutureDatedClampsToAgeZero(t *testing.T) {
	s := NewScorer(testRankingConfig())
	now := time.Now()

	future := &models.FeedItem{
		Kind:       models.KindPost,
		SortDate:   now.Add(30 * time.Minute),
		Engagement: models.Engagement{Likes: 5},
	}
	present := &models.FeedItem{
		Kind:       models.KindPost,
		SortDate:   now,
		Engagement: models.Engagement{Likes: 5},
	}

	if got, want := s.Score(future, now), s.Score(present, now); !almostEqual(got, want) {
		t.Errorf("future-dated Score = %v, want age-zero score %v", got, want)
	}
}

func TestScoreSelfEngagementDiscount(t *testing.T) {
	cfg := testRankingConfig()
	s := NewScorer(cfg)
	now := time.Now()

	item := &models.FeedItem{
		Kind:           models.KindPost,
		SortDate:       now.Add(-12 * time.Hour),
		Engagement:     models.Engagement{Likes: 10, Comments: 4},
		SelfEngagement: models.Engagement{Likes: 3, Comments: 4},
	}

	// 7 effective likes, 0 effective comments.
	want := 7.0 / math.Pow(14, 1.8)
	if got := s.Score(item, now); !almostEqual(got, want) {
		t.Errorf("Score = %v, want %v", got, want)
	}

	// Partial discount keeps half credit for self engagement.
	cfg.SelfEngagementDiscount = 0.5
	want = (8.5 + 2.0*10.0) / math.Pow(14, 1.8)
	if got := s.Score(item, now); !almostEqual(got, want) {
		t.Errorf("partially discounted Score = %v, want %v", got, want)
	}
}

func TestEngagementScoreHasNoDecay(t *testing.T) {
	s := NewScorer(testRankingConfig())

	item := &models.FeedItem{
		Kind:       models.KindPost,
		SortDate:   time.Now().Add(-240 * time.Hour),
		Engagement: models.Engagement{Likes: 3, Reposts: 2},
	}

	if got, want := s.EngagementScore(item), 13.0; !almostEqual(got, want) {
		t.Errorf("EngagementScore = %v, want %v", got, want)
	}
}

func TestTimeDecayNormalization(t *testing.T) {
	s := NewScorer(testRankingConfig())

	if got := s.TimeDecay(0); !almostEqual(got, 1.0) {
		t.Errorf("TimeDecay(0) = %v, want 1.0", got)
	}
	if got := s.TimeDecay(-5); !almostEqual(got, 1.0) {
		t.Errorf("TimeDecay(-5) = %v, want 1.0", got)
	}

	prev := 1.0
	for _, age := range []float64{1, 6, 24, 168} {
		d := s.TimeDecay(age)
		if d <= 0 || d >= prev {
			t.Errorf("TimeDecay(%v) = %v, want strictly decreasing positive", age, d)
		}
		prev = d
	}
}
