// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/models"
)

func TestPreferenceBoostOnlyTaggedKinds(t *testing.T) {
	b := NewBoostPipeline(testRankingConfig())
	now := time.Now()

	project := &models.FeedItem{ID: "p1", Kind: models.KindProject, AuthorID: "a1", Score: 10, Tools: []string{"claude"}}
	gig := &models.FeedItem{ID: "g1", Kind: models.KindGig, AuthorID: "a2", Score: 10, TechStacks: []string{"go"}}
	post := &models.FeedItem{ID: "t1", Kind: models.KindPost, AuthorID: "a3", Score: 10, Tools: []string{"claude"}}
	unrelated := &models.FeedItem{ID: "p2", Kind: models.KindProject, AuthorID: "a4", Score: 10, Tools: []string{"figma"}}

	b.Apply([]*models.FeedItem{project, gig, post, unrelated}, nil, []string{"claude", "go"}, now)

	if !almostEqual(project.Score, 15) {
		t.Errorf("matching project score = %v, want 15", project.Score)
	}
	if !almostEqual(gig.Score, 15) {
		t.Errorf("matching gig score = %v, want 15", gig.Score)
	}
	if !almostEqual(post.Score, 10) {
		t.Errorf("post score = %v, want 10 (posts are never preference boosted)", post.Score)
	}
	if !almostEqual(unrelated.Score, 10) {
		t.Errorf("non-matching project score = %v, want 10", unrelated.Score)
	}
}

func TestPremiumBoost(t *testing.T) {
	b := NewBoostPipeline(testRankingConfig())
	now := time.Now()
	old := now.AddDate(-1, 0, 0)

	authors := map[string]models.Author{
		"a1": {ID: "a1", SubscriptionStatus: "active", CreatedAt: old},
		"a2": {ID: "a2", SubscriptionStatus: "trialing", CreatedAt: old},
		"a3": {ID: "a3", SubscriptionStatus: "none", CreatedAt: old},
	}
	items := []*models.FeedItem{
		{ID: "1", Kind: models.KindPost, AuthorID: "a1", Score: 10},
		{ID: "2", Kind: models.KindPost, AuthorID: "a2", Score: 10},
		{ID: "3", Kind: models.KindPost, AuthorID: "a3", Score: 10},
	}

	b.Apply(items, authors, nil, now)

	if !almostEqual(items[0].Score, 13) {
		t.Errorf("active subscriber score = %v, want 13", items[0].Score)
	}
	if !almostEqual(items[1].Score, 13) {
		t.Errorf("trialing subscriber score = %v, want 13", items[1].Score)
	}
	if !almostEqual(items[2].Score, 10) {
		t.Errorf("non-subscriber score = %v, want 10", items[2].Score)
	}
}

func TestNewCreatorBoostLinearDecay(t *testing.T) {
	b := NewBoostPipeline(testRankingConfig())
	now := time.Now()

	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"brand new", 0, 1.8},
		{"halfway", 15 * 24 * time.Hour, 1.4},
		{"at threshold", 30 * 24 * time.Hour, 1.0},
		{"past threshold", 90 * 24 * time.Hour, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authors := map[string]models.Author{
				"a1": {ID: "a1", CreatedAt: now.Add(-tc.age)},
			}
			item := &models.FeedItem{ID: "1", Kind: models.KindPost, AuthorID: "a1", Score: 10}
			b.Apply([]*models.FeedItem{item}, authors, nil, now)

			if !almostEqual(item.Score, 10*tc.want) {
				t.Errorf("score = %v, want %v", item.Score, 10*tc.want)
			}
		})
	}
}

func TestMissingAuthorPassesThroughUnboosted(t *testing.T) {
	b := NewBoostPipeline(testRankingConfig())

	item := &models.FeedItem{ID: "1", Kind: models.KindPost, AuthorID: "ghost", Score: 7}
	b.Apply([]*models.FeedItem{item}, map[string]models.Author{}, nil, time.Now())

	if !almostEqual(item.Score, 7) {
		t.Errorf("score = %v, want 7", item.Score)
	}
}

func TestBoostsCompound(t *testing.T) {
	b := NewBoostPipeline(testRankingConfig())
	now := time.Now()

	authors := map[string]models.Author{
		"a1": {ID: "a1", SubscriptionStatus: "active", CreatedAt: now},
	}
	item := &models.FeedItem{ID: "1", Kind: models.KindProject, AuthorID: "a1", Score: 10, Tools: []string{"claude"}}
	b.Apply([]*models.FeedItem{item}, authors, []string{"claude"}, now)

	// 10 * 1.5 * 1.3 * 1.8
	if !almostEqual(item.Score, 35.1) {
		t.Errorf("score = %v, want 35.1", item.Score)
	}
}
