// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// ContentSource supplies feed candidates from the content store.
// Every method returns items with engagement counters and tag/media
// associations already batch-loaded (one batch per result set, never
// one call per item).
type ContentSource interface {
	// PostsSince returns posts (and reposts) created after since.
	PostsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error)

	// ProjectsSince returns projects created after since, optionally
	// restricted to the given tool/stack tags.
	ProjectsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error)

	// GigsSince returns gigs created after since.
	GigsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error)

	// BackfillItems returns older items (created before the recent
	// window) by engagement volume, excluding the given ids.
	BackfillItems(ctx context.Context, before time.Time, excludeIDs []string, limit int) ([]*models.FeedItem, error)

	// FollowingItems returns items authored by users the viewer
	// follows, ordered by sort date descending, strictly older than
	// before when set.
	FollowingItems(ctx context.Context, viewerID string, before *time.Time, limit int) ([]*models.FeedItem, error)
}

// AuthorSource supplies batched author metadata and per-viewer
// engagement flags from the social graph store.
type AuthorSource interface {
	// AuthorsByID returns author metadata for the distinct id set in
	// one batch.
	AuthorsByID(ctx context.Context, ids []string) (map[string]models.Author, error)

	// EngagementFlags returns the viewer's liked/bookmarked/reposted
	// flags for the given items in one batch.
	EngagementFlags(ctx context.Context, viewerID string, refs []models.ItemRef) (map[models.ItemRef]models.EngagementFlags, error)
}

// Service assembles the for-you and following feeds.
type Service struct {
	content ContentSource
	authors AuthorSource
	scorer  *Scorer
	boosts  *BoostPipeline
	cache   *Cache
	cfg     *config.RankingConfig
	logger  zerolog.Logger

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewService wires the feed pipeline together.
func NewService(content ContentSource, authors AuthorSource, cfg *config.RankingConfig, logger zerolog.Logger) *Service {
	return &Service{
		content: content,
		authors: authors,
		scorer:  NewScorer(cfg),
		boosts:  NewBoostPipeline(cfg),
		cache:   NewCache(cfg.CacheTTL),
		cfg:     cfg,
		logger:  logger.With().Str("component", "feed").Logger(),
		now:     time.Now,
	}
}

// Cache exposes the first-page cache so the janitor service can sweep it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// ForYouRequest carries the parameters of one for-you feed request.
type ForYouRequest struct {
	Limit    int
	Cursor   string
	ViewerID string
	Tools    []string
	Stacks   []string
}

// ForYou serves one page of the personalized, score-ranked feed.
//
// The unfiltered, cursor-less pool is cached; filtered or paginated
// requests recompute. Viewer engagement flags are applied after any
// cache read, never cached.
func (s *Service) ForYou(ctx context.Context, req ForYouRequest) (*models.FeedPage, error) {
	now := s.now()
	cursorScore, _, hasCursor := DecodeScoreCursor(req.Cursor)

	var pool []*models.FeedItem
	var err error
	if key := CacheKey(req.Tools, req.Stacks); key != "" && !hasCursor {
		pool, err = s.cache.GetOrCompute(ctx, key, func(fillCtx context.Context) ([]*models.FeedItem, error) {
			return s.computePool(fillCtx, nil, nil, false, now)
		})
	} else {
		pool, err = s.computePool(ctx, req.Tools, req.Stacks, hasCursor, now)
	}
	if err != nil {
		return nil, err
	}
	metrics.FeedCandidates.WithLabelValues("for_you").Observe(float64(len(pool)))

	if hasCursor {
		pool = belowScore(pool, cursorScore)
	}
	if len(pool) == 0 {
		return models.EmptyFeedPage(), nil
	}

	kept := Diversify(pool, req.Limit, s.cfg.MaxItemsPerAuthor)
	if len(kept) == 0 {
		return models.EmptyFeedPage(), nil
	}

	page := s.allocateDiscovery(ctx, kept, req.Limit)

	if req.ViewerID != "" {
		s.applyViewerFlags(ctx, req.ViewerID, page)
	}

	hasMore := len(pool) > len(kept)
	result := &models.FeedPage{Items: page, HasMore: hasMore}
	if hasMore {
		// The diversified list is score-ordered, so its tail is the
		// lowest-ranked item delivered; the cursor points strictly
		// past it.
		last := kept[len(kept)-1]
		cursor := EncodeScoreCursor(last.Score, last.ID)
		result.NextCursor = &cursor
	}
	return result, nil
}

// FollowingFeed serves one page of the chronological feed of followed
// authors.
func (s *Service) FollowingFeed(ctx context.Context, viewerID string, limit int, cursor string) (*models.FeedPage, error) {
	var before *time.Time
	// The cursor id is a tie-breaker the strict less-than filter does
	// not consult; boundary ties are skipped by contract.
	if ts, _, ok := DecodeTimeCursor(cursor); ok {
		before = &ts
	}

	items, err := s.content.FollowingItems(ctx, viewerID, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("following feed for %s: %w", viewerID, err)
	}
	metrics.FeedCandidates.WithLabelValues("following").Observe(float64(len(items)))
	if len(items) == 0 {
		return models.EmptyFeedPage(), nil
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	s.applyViewerFlags(ctx, viewerID, items)

	result := &models.FeedPage{Items: items, HasMore: hasMore}
	if hasMore {
		last := items[len(items)-1]
		next := EncodeTimeCursor(last.SortDate, last.ID)
		result.NextCursor = &next
	}
	return result, nil
}

// computePool builds the scored, boosted, sorted candidate pool.
//
// The three window queries run concurrently; the request is bounded by
// one round trip, not three. Backfill only applies to the first page.
func (s *Service) computePool(ctx context.Context, tools, stacks []string, hasCursor bool, now time.Time) ([]*models.FeedItem, error) {
	since := now.AddDate(0, 0, -s.cfg.WindowDays)

	queries := []struct {
		name  string
		fetch func(context.Context) ([]*models.FeedItem, error)
	}{
		{"posts", func(ctx context.Context) ([]*models.FeedItem, error) {
			return s.content.PostsSince(ctx, since, tools, stacks)
		}},
		{"projects", func(ctx context.Context) ([]*models.FeedItem, error) {
			return s.content.ProjectsSince(ctx, since, tools, stacks)
		}},
		{"gigs", func(ctx context.Context) ([]*models.FeedItem, error) {
			return s.content.GigsSince(ctx, since, tools, stacks)
		}},
	}

	results := make([][]*models.FeedItem, len(queries))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, q := range queries {
		wg.Add(1)
		go func(idx int, name string, fetch func(context.Context) ([]*models.FeedItem, error)) {
			defer wg.Done()
			items, err := fetch(ctx)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("fetch %s: %w", name, err)
				}
				mu.Unlock()
				return
			}
			results[idx] = items
		}(i, q.name, q.fetch)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	pool := make([]*models.FeedItem, 0, len(results[0])+len(results[1])+len(results[2]))
	for _, r := range results {
		pool = append(pool, r...)
	}
	for _, item := range pool {
		item.Score = s.scorer.Score(item, now)
	}

	// Older backfill keeps low-activity periods from starving the
	// feed. Backfill is scored by engagement alone, no decay.
	if len(pool) < s.cfg.MinFeedItems && !hasCursor {
		seen := make([]string, 0, len(pool))
		for _, item := range pool {
			seen = append(seen, item.ID)
		}
		older, err := s.content.BackfillItems(ctx, since, seen, s.cfg.MinFeedItems-len(pool))
		if err != nil {
			return nil, fmt.Errorf("backfill: %w", err)
		}
		for _, item := range older {
			item.Score = s.scorer.EngagementScore(item)
		}
		pool = append(pool, older...)
	}

	s.boostPool(ctx, pool, append(append([]string{}, tools...), stacks...), now)
	sortByScoreDesc(pool)
	return pool, nil
}

// boostPool applies the boost pipeline with one batched author lookup.
// A failed lookup leaves the pool unboosted rather than failing it.
func (s *Service) boostPool(ctx context.Context, pool []*models.FeedItem, prefs []string, now time.Time) {
	if len(pool) == 0 {
		return
	}
	authors, err := s.authors.AuthorsByID(ctx, distinctAuthorIDs(pool))
	if err != nil {
		s.logger.Warn().Err(err).Msg("author batch lookup failed, serving unboosted scores")
		authors = map[string]models.Author{}
	}
	s.boosts.Apply(pool, authors, prefs, now)
}

// allocateDiscovery reserves small-creator slots within the page. A
// failed follower lookup degrades to no discovery slots.
func (s *Service) allocateDiscovery(ctx context.Context, kept []*models.FeedItem, limit int) []*models.FeedItem {
	if s.cfg.DiscoverySlots <= 0 {
		return kept
	}
	authors, err := s.authors.AuthorsByID(ctx, distinctAuthorIDs(kept))
	if err != nil {
		s.logger.Warn().Err(err).Msg("follower lookup failed, skipping discovery slots")
		return kept
	}
	followers := make(map[string]int, len(authors))
	for id, a := range authors {
		followers[id] = a.FollowerCount
	}
	return AllocateDiscovery(kept, followers, limit, s.cfg.DiscoverySlots, s.cfg.SmallCreatorFollowers)
}

// applyViewerFlags stamps the viewer's liked/bookmarked/reposted flags
// onto the page. Flags are always computed fresh, never cached; a
// failed lookup leaves the flags unset rather than failing the page.
func (s *Service) applyViewerFlags(ctx context.Context, viewerID string, items []*models.FeedItem) {
	if len(items) == 0 {
		return
	}
	refs := make([]models.ItemRef, len(items))
	for i, item := range items {
		refs[i] = models.ItemRef{Kind: item.Kind, ID: item.ID}
	}
	flags, err := s.authors.EngagementFlags(ctx, viewerID, refs)
	if err != nil {
		s.logger.Warn().Err(err).Str("viewer_id", viewerID).Msg("engagement flag lookup failed")
		return
	}
	for _, item := range items {
		if f, ok := flags[models.ItemRef{Kind: item.Kind, ID: item.ID}]; ok {
			item.ViewerLiked = f.Liked
			item.ViewerBookmarked = f.Bookmarked
			item.ViewerReposted = f.Reposted
		}
	}
}

// belowScore filters to items strictly below the cursor ordinal.
func belowScore(items []*models.FeedItem, score float64) []*models.FeedItem {
	out := make([]*models.FeedItem, 0, len(items))
	for _, item := range items {
		if item.Score < score {
			out = append(out, item)
		}
	}
	return out
}

// distinctAuthorIDs returns the de-duplicated author id set of a pool.
func distinctAuthorIDs(items []*models.FeedItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.AuthorID]; !ok {
			seen[item.AuthorID] = struct{}{}
			ids = append(ids, item.AuthorID)
		}
	}
	return ids
}
