// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// SuggestSource supplies the social-graph reads behind who-to-follow.
type SuggestSource interface {
	// ViewerActivity returns the viewer's follow and like counts, used
	// for cold-start detection.
	ViewerActivity(ctx context.Context, viewerID string) (follows, likes int, err error)

	// CandidateUsers returns the raw suggestion candidate pool with
	// follower counts, last activity, and project tags preloaded.
	CandidateUsers(ctx context.Context, viewerID string, limit int) ([]models.UserProfile, error)

	// ExcludedUserIDs returns, in one batch, the users excluded from
	// suggestions: already followed, bidirectionally blocked, and
	// suggestions dismissed after dismissedSince.
	ExcludedUserIDs(ctx context.Context, viewerID string, dismissedSince time.Time) (map[string]struct{}, error)

	// FriendsOfFriends returns, per candidate id, how many of the
	// viewer's follows also follow that candidate.
	FriendsOfFriends(ctx context.Context, viewerID string) (map[string]int, error)

	// EngagedCreatorCounts returns, per creator id, how many of that
	// creator's items the viewer liked and bookmarked.
	EngagedCreatorCounts(ctx context.Context, viewerID string) (liked, bookmarked map[string]int, err error)

	// ViewerLikedTags returns the tool/stack tags of the projects the
	// viewer liked or bookmarked.
	ViewerLikedTags(ctx context.Context, viewerID string) ([]string, error)

	// PopularUsers returns users active since the given time ordered
	// by follower count, for the cold start fallback.
	PopularUsers(ctx context.Context, activeSince time.Time, limit int) ([]models.UserProfile, error)
}

// Suggester produces who-to-follow suggestions from four independently
// computed, max-normalized signals:
//
//	graph      (0.35): friends-of-friends plus engaged-creator counts
//	popularity (0.25): ln(followers+1) scaled by activity recency
//	relevance  (0.25): tag overlap with the viewer's liked projects
//	diversity  (0.15): popularity outside the viewer's tag bubble
//
// Viewers with no follows and at most a handful of likes skip the
// multi-signal path entirely and receive popular recently-active users.
type Suggester struct {
	source SuggestSource
	cfg    *config.SuggestConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewSuggester creates a who-to-follow engine.
func NewSuggester(source SuggestSource, cfg *config.SuggestConfig, logger zerolog.Logger) *Suggester {
	return &Suggester{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "suggest").Logger(),
		now:    time.Now,
	}
}

// SuggestedUsers returns up to limit follow suggestions for the viewer.
func (s *Suggester) SuggestedUsers(ctx context.Context, viewerID string, limit int) ([]models.SuggestedUser, error) {
	now := s.now()

	follows, likes, err := s.source.ViewerActivity(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("viewer activity for %s: %w", viewerID, err)
	}
	if follows == 0 && likes <= s.cfg.ColdStartMaxLikes {
		return s.coldStart(ctx, now, limit)
	}

	candidates, err := s.candidatePool(ctx, viewerID, now)
	if err != nil {
		return nil, err
	}
	metrics.FeedCandidates.WithLabelValues("suggested_users").Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return []models.SuggestedUser{}, nil
	}

	scores, err := s.blendSignals(ctx, viewerID, candidates, now)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.SuggestedUser, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, models.SuggestedUser{
			ID:            c.ID,
			Username:      c.Username,
			DisplayName:   c.DisplayName,
			FollowerCount: c.FollowerCount,
			LastActiveAt:  c.LastActiveAt,
			Score:         scores[c.ID],
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].ID > suggestions[j].ID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// coldStart returns popular users active in the recent window, ordered
// by follower count. Viewers with no graph yield nothing for the
// personalized signals, so there is no point computing them.
func (s *Suggester) coldStart(ctx context.Context, now time.Time, limit int) ([]models.SuggestedUser, error) {
	activeSince := now.AddDate(0, 0, -s.cfg.PopularActiveDays)
	users, err := s.source.PopularUsers(ctx, activeSince, limit)
	if err != nil {
		return nil, fmt.Errorf("popular users fallback: %w", err)
	}
	out := make([]models.SuggestedUser, 0, len(users))
	for _, u := range users {
		out = append(out, models.SuggestedUser{
			ID:            u.ID,
			Username:      u.Username,
			DisplayName:   u.DisplayName,
			FollowerCount: u.FollowerCount,
			LastActiveAt:  u.LastActiveAt,
			Score:         float64(u.FollowerCount),
		})
	}
	return out, nil
}

// candidatePool fetches raw candidates and filters the excluded set:
// the viewer, followed users, bidirectional blocks, and recent
// dismissals, deduplicated by id.
func (s *Suggester) candidatePool(ctx context.Context, viewerID string, now time.Time) ([]models.UserProfile, error) {
	raw, err := s.source.CandidateUsers(ctx, viewerID, s.cfg.CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("candidate users: %w", err)
	}

	dismissedSince := now.AddDate(0, 0, -s.cfg.DismissalDays)
	excluded, err := s.source.ExcludedUserIDs(ctx, viewerID, dismissedSince)
	if err != nil {
		return nil, fmt.Errorf("excluded users: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	candidates := make([]models.UserProfile, 0, len(raw))
	for _, c := range raw {
		if c.ID == viewerID {
			continue
		}
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// blendSignals computes the four signals concurrently, normalizes each
// to [0,1] by its own maximum, and blends them under the configured
// weights.
func (s *Suggester) blendSignals(ctx context.Context, viewerID string, candidates []models.UserProfile, now time.Time) (map[string]float64, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error

		graph     map[string]float64
		relevance map[string]float64
		diversity map[string]float64
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		g, err := s.graphSignal(ctx, viewerID, candidates)
		if err != nil {
			fail(fmt.Errorf("graph signal: %w", err))
			return
		}
		graph = g
	}()
	go func() {
		defer wg.Done()
		rel, div, err := s.tagSignals(ctx, viewerID, candidates, now)
		if err != nil {
			fail(fmt.Errorf("tag signals: %w", err))
			return
		}
		relevance, diversity = rel, div
	}()

	// Popularity needs no store reads; compute it on this goroutine.
	popularity := s.popularitySignal(candidates, now)

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	normalize(graph)
	normalize(popularity)
	normalize(relevance)
	normalize(diversity)

	blended := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		blended[c.ID] = graph[c.ID]*s.cfg.GraphWeight +
			popularity[c.ID]*s.cfg.PopularityWeight +
			relevance[c.ID]*s.cfg.RelevanceWeight +
			diversity[c.ID]*s.cfg.DiversityWeight
	}
	return blended, nil
}

// graphSignal scores candidates by shared-graph proximity:
// friends-of-friends count plus the viewer's engaged-creator counts,
// bookmarks weighted more heavily than likes.
func (s *Suggester) graphSignal(ctx context.Context, viewerID string, candidates []models.UserProfile) (map[string]float64, error) {
	fof, err := s.source.FriendsOfFriends(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	liked, bookmarked, err := s.source.EngagedCreatorCounts(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = float64(fof[c.ID]) +
			float64(liked[c.ID]) +
			float64(bookmarked[c.ID])*s.cfg.BookmarkFactor
	}
	return scores, nil
}

// popularitySignal scores ln(followers+1) scaled by how recently the
// candidate was active.
func (s *Suggester) popularitySignal(candidates []models.UserProfile, now time.Time) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = math.Log(float64(c.FollowerCount)+1) * activityRecencyMultiplier(now.Sub(c.LastActiveAt))
	}
	return scores
}

// tagSignals computes relevance (tag overlap with the viewer's liked
// projects) and diversity (popularity restricted to candidates wholly
// outside the viewer's tag bubble) from one tag-history read.
//
// A viewer with no tag history gets an empty diversity signal, letting
// the other signals dominate.
func (s *Suggester) tagSignals(ctx context.Context, viewerID string, candidates []models.UserProfile, now time.Time) (relevance, diversity map[string]float64, err error) {
	tags, err := s.source.ViewerLikedTags(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}

	viewerTags := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		viewerTags[t] = struct{}{}
	}

	relevance = make(map[string]float64, len(candidates))
	diversity = make(map[string]float64, len(candidates))
	if len(viewerTags) == 0 {
		return relevance, diversity, nil
	}

	for _, c := range candidates {
		overlap := 0
		for _, t := range c.Tags {
			if _, ok := viewerTags[t]; ok {
				overlap++
			}
		}
		relevance[c.ID] = float64(overlap)

		// Diversity deliberately surfaces creators outside the
		// viewer's bubble: only candidates with tags and no overlap
		// qualify.
		if overlap == 0 && len(c.Tags) > 0 {
			diversity[c.ID] = math.Log(float64(c.FollowerCount)+1) * activityRecencyMultiplier(now.Sub(c.LastActiveAt))
		}
	}
	return relevance, diversity, nil
}

// activityRecencyMultiplier steps down with time since last activity:
// 1.0 within 7 days, 0.8 within 30, 0.5 within 60, 0 beyond.
func activityRecencyMultiplier(sinceActive time.Duration) float64 {
	days := sinceActive.Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.8
	case days <= 60:
		return 0.5
	default:
		return 0.0
	}
}

// normalize scales a signal's raw scores to [0,1] by its own maximum.
// An all-zero signal stays all zero.
func normalize(scores map[string]float64) {
	var maxScore float64
	for _, v := range scores {
		if v > maxScore {
			maxScore = v
		}
	}
	if maxScore == 0 {
		return
	}
	for k, v := range scores {
		scores[k] = v / maxScore
	}
}
