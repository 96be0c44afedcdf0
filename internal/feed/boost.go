// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/models"
)

// BoostPipeline applies the multiplicative score adjustments after base
// scoring: topic preference, premium authorship, and new-creator
// discovery. Multiplication commutes, so the stages are order
// independent; they are applied in a single pass per item.
//
// Author metadata is supplied as one batch map per page. An item whose
// author is missing from the map passes through unboosted rather than
// failing the page.
type BoostPipeline struct {
	cfg *config.RankingConfig
}

// NewBoostPipeline creates a boost pipeline with the given configuration.
func NewBoostPipeline(cfg *config.RankingConfig) *BoostPipeline {
	return &BoostPipeline{cfg: cfg}
}

// Apply mutates item scores in place. prefs are the caller's stated
// tool and tech-stack preferences; authors is the batched author
// lookup keyed by author id.
func (b *BoostPipeline) Apply(items []*models.FeedItem, authors map[string]models.Author, prefs []string, now time.Time) {
	prefSet := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		prefSet[p] = struct{}{}
	}

	for _, item := range items {
		if len(prefSet) > 0 && b.matchesPreference(item, prefSet) {
			item.Score *= b.cfg.PreferenceBoost
		}

		author, ok := authors[item.AuthorID]
		if !ok {
			continue
		}
		if author.IsPremium() {
			item.Score *= b.cfg.PremiumBoost
		}
		item.Score *= b.newCreatorBoost(author.CreatedAt, now)
	}
}

// matchesPreference reports whether a project or gig shares at least
// one tool or tech-stack tag with the caller's preferences. Posts and
// reposts carry no tags and are never preference boosted.
func (b *BoostPipeline) matchesPreference(item *models.FeedItem, prefSet map[string]struct{}) bool {
	if item.Kind != models.KindProject && item.Kind != models.KindGig {
		return false
	}
	for _, t := range item.Tools {
		if _, ok := prefSet[t]; ok {
			return true
		}
	}
	for _, t := range item.TechStacks {
		if _, ok := prefSet[t]; ok {
			return true
		}
	}
	return false
}

// newCreatorBoost interpolates linearly from the maximum boost at
// account age zero down to 1.0 at the threshold.
func (b *BoostPipeline) newCreatorBoost(createdAt, now time.Time) float64 {
	threshold := time.Duration(b.cfg.NewCreatorThresholdDays) * 24 * time.Hour
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	if age >= threshold {
		return 1.0
	}
	maxBoost := b.cfg.NewCreatorMaxBoost
	return maxBoost - (maxBoost-1.0)*age.Seconds()/threshold.Seconds()
}
