// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package models

import "time"

// FeedPage is one page of a ranked or chronological feed.
//
// NextCursor, when present, points strictly past the last item
// returned. Replaying it against a stable candidate set never
// delivers a duplicate.
type FeedPage struct {
	Items      []*FeedItem `json:"items"`
	NextCursor *string     `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// EmptyFeedPage returns the canonical empty page. An empty candidate
// pool is a valid result, not an error.
func EmptyFeedPage() *FeedPage {
	return &FeedPage{Items: []*FeedItem{}, HasMore: false}
}

// SuggestedUser is one who-to-follow candidate with its blended score.
type SuggestedUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name,omitempty"`
	FollowerCount int       `json:"follower_count"`
	LastActiveAt  time.Time `json:"last_active_at"`
	Score         float64   `json:"score"`
}

// UserProfile is the candidate-side input to the who-to-follow engine.
// Tags are the AI-tool and tech-stack tags drawn from the user's
// projects, used by the relevance and diversity signals.
type UserProfile struct {
	ID            string
	Username      string
	DisplayName   string
	FollowerCount int
	LastActiveAt  time.Time
	Tags          []string
}

// EngagementWindow splits an item's engagement event volume into the
// recent (last 6h) and older (6-24h) buckets used by the trending
// velocity boost.
type EngagementWindow struct {
	Recent int
	Older  int
}

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}
