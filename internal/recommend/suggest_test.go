// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/models"
)

type mockSuggestSource struct {
	activity   func(ctx context.Context, viewerID string) (int, int, error)
	candidates func(ctx context.Context, viewerID string, limit int) ([]models.UserProfile, error)
	excluded   func(ctx context.Context, viewerID string, dismissedSince time.Time) (map[string]struct{}, error)
	fof        func(ctx context.Context, viewerID string) (map[string]int, error)
	engaged    func(ctx context.Context, viewerID string) (map[string]int, map[string]int, error)
	likedTags  func(ctx context.Context, viewerID string) ([]string, error)
	popular    func(ctx context.Context, activeSince time.Time, limit int) ([]models.UserProfile, error)
}

func (m *mockSuggestSource) ViewerActivity(ctx context.Context, viewerID string) (int, int, error) {
	if m.activity == nil {
		return 1, 10, nil
	}
	return m.activity(ctx, viewerID)
}

func (m *mockSuggestSource) CandidateUsers(ctx context.Context, viewerID string, limit int) ([]models.UserProfile, error) {
	if m.candidates == nil {
		return nil, nil
	}
	return m.candidates(ctx, viewerID, limit)
}

func (m *mockSuggestSource) ExcludedUserIDs(ctx context.Context, viewerID string, dismissedSince time.Time) (map[string]struct{}, error) {
	if m.excluded == nil {
		return map[string]struct{}{}, nil
	}
	return m.excluded(ctx, viewerID, dismissedSince)
}

func (m *mockSuggestSource) FriendsOfFriends(ctx context.Context, viewerID string) (map[string]int, error) {
	if m.fof == nil {
		return map[string]int{}, nil
	}
	return m.fof(ctx, viewerID)
}

func (m *mockSuggestSource) EngagedCreatorCounts(ctx context.Context, viewerID string) (map[string]int, map[string]int, error) {
	if m.engaged == nil {
		return map[string]int{}, map[string]int{}, nil
	}
	return m.engaged(ctx, viewerID)
}

func (m *mockSuggestSource) ViewerLikedTags(ctx context.Context, viewerID string) ([]string, error) {
	if m.likedTags == nil {
		return nil, nil
	}
	return m.likedTags(ctx, viewerID)
}

func (m *mockSuggestSource) PopularUsers(ctx context.Context, activeSince time.Time, limit int) ([]models.UserProfile, error) {
	if m.popular == nil {
		return nil, nil
	}
	return m.popular(ctx, activeSince, limit)
}

func testSuggestConfig() *config.SuggestConfig {
	return &config.SuggestConfig{
		GraphWeight:      0.35,
		PopularityWeight: 0.25,
		RelevanceWeight:  0.25,
		DiversityWeight:  0.15,

		BookmarkFactor:    2.0,
		DismissalDays:     30,
		ColdStartMaxLikes: 3,
		PopularActiveDays: 30,
		CandidatePoolSize: 200,
	}
}

func newTestSuggester(source SuggestSource) *Suggester {
	return NewSuggester(source, testSuggestConfig(), logging.NewTestLogger(nil))
}

func profile(id string, followers int, lastActive time.Time, tags ...string) models.UserProfile {
	return models.UserProfile{
		ID:            id,
		Username:      id,
		FollowerCount: followers,
		LastActiveAt:  lastActive,
		Tags:          tags,
	}
}

func TestColdStartFallsBackToPopularUsers(t *testing.T) {
	now := time.Now()
	candidatesCalled := false

	source := &mockSuggestSource{
		activity: func(context.Context, string) (int, int, error) {
			return 0, 3, nil
		},
		candidates: func(context.Context, string, int) ([]models.UserProfile, error) {
			candidatesCalled = true
			return nil, nil
		},
		popular: func(context.Context, time.Time, int) ([]models.UserProfile, error) {
			return []models.UserProfile{
				profile("star", 5000, now),
				profile("rising", 800, now),
			}, nil
		},
	}

	s := newTestSuggester(source)
	s.now = func() time.Time { return now }

	out, err := s.SuggestedUsers(context.Background(), "newcomer", 10)
	if err != nil {
		t.Fatal(err)
	}
	if candidatesCalled {
		t.Error("cold start must skip the multi-signal candidate path")
	}
	if len(out) != 2 || out[0].ID != "star" || out[1].ID != "rising" {
		t.Fatalf("fallback order wrong: %+v", out)
	}
	if out[0].Score != 5000 || out[1].Score != 800 {
		t.Errorf("fallback scores = %v/%v, want follower counts", out[0].Score, out[1].Score)
	}
}

func TestColdStartNotTriggeredByFollows(t *testing.T) {
	popularCalled := false
	source := &mockSuggestSource{
		activity: func(context.Context, string) (int, int, error) {
			return 1, 0, nil
		},
		popular: func(context.Context, time.Time, int) ([]models.UserProfile, error) {
			popularCalled = true
			return nil, nil
		},
	}

	s := newTestSuggester(source)
	if _, err := s.SuggestedUsers(context.Background(), "viewer", 10); err != nil {
		t.Fatal(err)
	}
	if popularCalled {
		t.Error("a viewer with follows must take the multi-signal path")
	}
}

func TestCandidateExclusions(t *testing.T) {
	now := time.Now()
	source := &mockSuggestSource{
		candidates: func(context.Context, string, int) ([]models.UserProfile, error) {
			return []models.UserProfile{
				profile("viewer", 10, now),  // the viewer themselves
				profile("blocked", 20, now), // in the excluded set
				profile("keep", 30, now),
				profile("keep", 30, now), // duplicate row
			}, nil
		},
		excluded: func(context.Context, string, time.Time) (map[string]struct{}, error) {
			return map[string]struct{}{"blocked": {}}, nil
		},
	}

	s := newTestSuggester(source)
	s.now = func() time.Time { return now }

	out, err := s.SuggestedUsers(context.Background(), "viewer", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "keep" {
		t.Errorf("suggestions = %+v, want only keep", out)
	}
}

func TestSignalBlendingAndNormalization(t *testing.T) {
	now := time.Now()

	// a dominates graph and relevance; b dominates popularity and is
	// the only candidate outside the viewer's tag bubble; c is stale.
	source := &mockSuggestSource{
		candidates: func(context.Context, string, int) ([]models.UserProfile, error) {
			return []models.UserProfile{
				profile("a", 100, now, "go"),
				profile("b", 1000, now, "rust"),
				profile("c", 50, now.Add(-45*24*time.Hour)),
			}, nil
		},
		fof: func(context.Context, string) (map[string]int, error) {
			return map[string]int{"a": 4}, nil
		},
		engaged: func(context.Context, string) (map[string]int, map[string]int, error) {
			return map[string]int{"a": 2}, map[string]int{"a": 1}, nil
		},
		likedTags: func(context.Context, string) ([]string, error) {
			return []string{"go"}, nil
		},
	}

	s := newTestSuggester(source)
	s.now = func() time.Time { return now }

	out, err := s.SuggestedUsers(context.Background(), "viewer", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(out))
	}

	scores := map[string]float64{}
	for _, u := range out {
		scores[u.ID] = u.Score
	}

	// Popularity is max-normalized against b's ln(1001); c's recency
	// multiplier is 0.5 at 45 days of inactivity.
	popNorm := func(followers int, recency float64) float64 {
		return math.Log(float64(followers)+1) * recency / math.Log(1001)
	}

	// a: graph 1.0 (fof 4 + liked 2 + bookmarked 1x2 = 8, the max),
	// relevance 1.0, no diversity (inside the bubble).
	wantA := 0.35 + 0.25*popNorm(100, 1.0) + 0.25
	// b: zero graph and relevance, max popularity and max diversity.
	wantB := 0.25 + 0.15
	// c: popularity only, at half recency.
	wantC := 0.25 * popNorm(50, 0.5)

	if !closeTo(scores["a"], wantA) {
		t.Errorf("score(a) = %v, want %v", scores["a"], wantA)
	}
	if !closeTo(scores["b"], wantB) {
		t.Errorf("score(b) = %v, want %v", scores["b"], wantB)
	}
	if !closeTo(scores["c"], wantC) {
		t.Errorf("score(c) = %v, want %v", scores["c"], wantC)
	}
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "c" {
		t.Errorf("order = [%s %s %s], want [a b c]", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestNoTagHistoryYieldsEmptyTagSignals(t *testing.T) {
	now := time.Now()
	source := &mockSuggestSource{
		candidates: func(context.Context, string, int) ([]models.UserProfile, error) {
			return []models.UserProfile{profile("x", 100, now, "go")}, nil
		},
	}

	s := newTestSuggester(source)
	s.now = func() time.Time { return now }

	out, err := s.SuggestedUsers(context.Background(), "viewer", 10)
	if err != nil {
		t.Fatal(err)
	}
	// No graph matches, no liked tags: only the popularity signal fires,
	// normalized to 1.0 for the sole candidate.
	if len(out) != 1 || !closeTo(out[0].Score, 0.25) {
		t.Errorf("suggestions = %+v, want single score 0.25", out)
	}
}

func TestSuggestionsTruncatedToLimit(t *testing.T) {
	now := time.Now()
	source := &mockSuggestSource{
		candidates: func(context.Context, string, int) ([]models.UserProfile, error) {
			return []models.UserProfile{
				profile("u1", 10, now),
				profile("u2", 10, now),
				profile("u3", 10, now),
			}, nil
		},
		fof: func(context.Context, string) (map[string]int, error) {
			return map[string]int{"u1": 9, "u2": 6, "u3": 3}, nil
		},
	}

	s := newTestSuggester(source)
	s.now = func() time.Time { return now }

	out, err := s.SuggestedUsers(context.Background(), "viewer", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "u1" || out[1].ID != "u2" {
		t.Errorf("suggestions = %+v, want [u1 u2]", out)
	}
}

func TestViewerActivityErrorPropagates(t *testing.T) {
	wantErr := errors.New("graph store down")
	source := &mockSuggestSource{
		activity: func(context.Context, string) (int, int, error) {
			return 0, 0, wantErr
		},
	}

	s := newTestSuggester(source)
	if _, err := s.SuggestedUsers(context.Background(), "viewer", 10); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestActivityRecencyMultiplier(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{3, 1.0},
		{7, 1.0},
		{20, 0.8},
		{45, 0.5},
		{90, 0.0},
	}
	for _, tc := range cases {
		got := activityRecencyMultiplier(time.Duration(tc.days) * 24 * time.Hour)
		if got != tc.want {
			t.Errorf("multiplier at %d days = %v, want %v", tc.days, got, tc.want)
		}
	}
}
