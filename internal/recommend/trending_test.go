// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/models"
)

type mockTrendingSource struct {
	projects func(ctx context.Context, since time.Time, limit int) ([]*models.FeedItem, error)
	windows  func(ctx context.Context, ids []string, recentStart, olderStart, now time.Time) (map[string]models.EngagementWindow, error)
}

func (m *mockTrendingSource) TrendingProjects(ctx context.Context, since time.Time, limit int) ([]*models.FeedItem, error) {
	if m.projects == nil {
		return nil, nil
	}
	return m.projects(ctx, since, limit)
}

func (m *mockTrendingSource) EngagementWindows(ctx context.Context, ids []string, recentStart, olderStart, now time.Time) (map[string]models.EngagementWindow, error) {
	if m.windows == nil {
		return map[string]models.EngagementWindow{}, nil
	}
	return m.windows(ctx, ids, recentStart, olderStart, now)
}

func testTrendingConfig() *config.TrendingConfig {
	return &config.TrendingConfig{
		WeightLike:     1.0,
		WeightComment:  13.5,
		WeightRepost:   20.0,
		WeightBookmark: 10.0,
		WeightQuote:    15.0,

		Gravity:    1.8,
		WindowDays: 14,

		OverfetchFactor: 3,
		RecentHours:     6,
		OlderHours:      24,
		MaxBoost:        3.0,

		QualityImageBonus: 0.1,
		QualityDescBonus:  0.1,
		QualityStackBonus: 0.1,
		QualityDescLength: 100,
	}
}

func newTestTrending(source TrendingSource) *Trending {
	return NewTrending(source, testTrendingConfig(), logging.NewTestLogger(nil))
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func trendingProject(id string, likes int, at time.Time) *models.FeedItem {
	return &models.FeedItem{
		ID:         id,
		Kind:       models.KindProject,
		AuthorID:   "author-" + id,
		SortDate:   at,
		Engagement: models.Engagement{Likes: likes},
	}
}

func TestTrendingOverfetchesCandidates(t *testing.T) {
	var gotLimit int
	source := &mockTrendingSource{
		projects: func(_ context.Context, _ time.Time, limit int) ([]*models.FeedItem, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	tr := newTestTrending(source)
	if _, err := tr.Projects(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if gotLimit != 30 {
		t.Errorf("candidate fetch limit = %d, want 30 (3x overfetch)", gotLimit)
	}
}

func TestTrendingVelocityBoostCappedAtMax(t *testing.T) {
	now := time.Now()
	at := now.Add(-2 * time.Hour)

	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			return []*models.FeedItem{
				trendingProject("surging", 10, at),
				trendingProject("steady", 10, at),
			}, nil
		},
		windows: func(context.Context, []string, time.Time, time.Time, time.Time) (map[string]models.EngagementWindow, error) {
			return map[string]models.EngagementWindow{
				// velocity = 100/(0+1) = 100, capped at 3.0
				"surging": {Recent: 100, Older: 0},
			}, nil
		},
	}

	tr := newTestTrending(source)
	tr.now = func() time.Time { return now }

	out, err := tr.Projects(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if out[0].ID != "surging" {
		t.Fatalf("top item = %s, want surging", out[0].ID)
	}
	if ratio := out[0].Score / out[1].Score; !closeTo(ratio, 3.0) {
		t.Errorf("boosted/base score ratio = %v, want 3.0 (MaxBoost)", ratio)
	}
}

func TestTrendingVelocityBoostBelowCap(t *testing.T) {
	now := time.Now()
	at := now.Add(-2 * time.Hour)

	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			return []*models.FeedItem{
				trendingProject("rising", 10, at),
				trendingProject("flat", 10, at),
			}, nil
		},
		windows: func(context.Context, []string, time.Time, time.Time, time.Time) (map[string]models.EngagementWindow, error) {
			return map[string]models.EngagementWindow{
				// velocity = 3/(2+1) = 1.0, boost = 2.0
				"rising": {Recent: 3, Older: 2},
			}, nil
		},
	}

	tr := newTestTrending(source)
	tr.now = func() time.Time { return now }

	out, err := tr.Projects(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if ratio := out[0].Score / out[1].Score; !closeTo(ratio, 2.0) {
		t.Errorf("boosted/base score ratio = %v, want 2.0", ratio)
	}
}

func TestTrendingQualityMultiplier(t *testing.T) {
	now := time.Now()
	at := now.Add(-2 * time.Hour)

	polished := trendingProject("polished", 10, at)
	polished.HasImages = true
	polished.Description = strings.Repeat("x", 150)
	polished.TechStacks = []string{"go"}
	bare := trendingProject("bare", 10, at)

	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			return []*models.FeedItem{bare, polished}, nil
		},
	}

	tr := newTestTrending(source)
	tr.now = func() time.Time { return now }

	out, err := tr.Projects(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != "polished" {
		t.Fatalf("top item = %s, want polished", out[0].ID)
	}
	if ratio := out[0].Score / out[1].Score; !closeTo(ratio, 1.3) {
		t.Errorf("quality ratio = %v, want 1.3 (three 0.1 bonuses)", ratio)
	}
}

func TestTrendingWindowLookupFailureServesBaseScores(t *testing.T) {
	now := time.Now()
	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			return []*models.FeedItem{
				trendingProject("a", 20, now.Add(-time.Hour)),
				trendingProject("b", 10, now.Add(-time.Hour)),
			}, nil
		},
		windows: func(context.Context, []string, time.Time, time.Time, time.Time) (map[string]models.EngagementWindow, error) {
			return nil, errors.New("aggregate store down")
		},
	}

	tr := newTestTrending(source)
	tr.now = func() time.Time { return now }

	out, err := tr.Projects(context.Background(), 10)
	if err != nil {
		t.Fatalf("window failure must degrade, not fail: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" {
		t.Errorf("base-score order = %v, want a first", ids(out))
	}
}

func TestTrendingTruncatesToLimit(t *testing.T) {
	now := time.Now()
	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			items := make([]*models.FeedItem, 9)
			for i := range items {
				items[i] = trendingProject(fmt.Sprintf("p-%d", i), 100-i*10, now.Add(-time.Hour))
			}
			return items, nil
		},
	}

	tr := newTestTrending(source)
	tr.now = func() time.Time { return now }

	out, err := tr.Projects(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d items, want 3", len(out))
	}
	for i, want := range []string{"p-0", "p-1", "p-2"} {
		if out[i].ID != want {
			t.Errorf("out[%d] = %s, want %s", i, out[i].ID, want)
		}
	}
}

func TestTrendingSourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("store down")
	source := &mockTrendingSource{
		projects: func(context.Context, time.Time, int) ([]*models.FeedItem, error) {
			return nil, wantErr
		},
	}

	tr := newTestTrending(source)
	if _, err := tr.Projects(context.Background(), 10); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func ids(items []*models.FeedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
