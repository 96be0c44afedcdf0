// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package models

import "time"

// ItemKind classifies the content types that can appear in a feed.
type ItemKind string

const (
	// KindPost is a short-form text/media post.
	KindPost ItemKind = "post"
	// KindProject is a showcased project with tools and tech stacks.
	KindProject ItemKind = "project"
	// KindGig is a paid work listing with bids and views.
	KindGig ItemKind = "gig"
	// KindRepost is a share of an existing post.
	KindRepost ItemKind = "repost"
)

// Valid reports whether the kind is one of the known content types.
func (k ItemKind) Valid() bool {
	switch k {
	case KindPost, KindProject, KindGig, KindRepost:
		return true
	default:
		return false
	}
}

// Engagement holds per-item engagement counters.
//
// Bids and Views are only populated for gigs; the remaining counters
// apply to posts, projects, and reposts.
type Engagement struct {
	Likes     int `json:"likes"`
	Comments  int `json:"comments"`
	Reposts   int `json:"reposts"`
	Bookmarks int `json:"bookmarks"`
	Quotes    int `json:"quotes"`
	Bids      int `json:"bids,omitempty"`
	Views     int `json:"views,omitempty"`
}

// FeedItem is a single rankable unit of content.
//
// Score is mutated in place by the scoring engine and each boost stage.
// A FeedItem is request-local: it is never shared across requests, so
// no synchronization is needed around Score mutation. Items served from
// the feed cache are deep-copied before any per-request mutation.
type FeedItem struct {
	ID       string   `json:"id"`
	Kind     ItemKind `json:"kind"`
	AuthorID string   `json:"author_id"`

	// Score is the composite relevance score. Always finite and >= 0
	// after scoring.
	Score float64 `json:"score"`

	// SortDate orders the chronological (following) feed and drives
	// time decay for the ranked feed.
	SortDate time.Time `json:"sort_date"`

	Engagement Engagement `json:"engagement"`

	// SelfEngagement counts engagement by the item's own author, kept
	// separately so the self-engagement discount can be applied at
	// scoring time.
	SelfEngagement Engagement `json:"-"`

	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	HasImages   bool     `json:"has_images"`
	Tools       []string `json:"tools,omitempty"`
	TechStacks  []string `json:"tech_stacks,omitempty"`
	MediaURLs   []string `json:"media_urls,omitempty"`

	// Viewer-specific flags. Applied fresh after every cache read,
	// never cached.
	ViewerLiked      bool `json:"viewer_liked"`
	ViewerBookmarked bool `json:"viewer_bookmarked"`
	ViewerReposted   bool `json:"viewer_reposted"`
}

// Clone returns a deep copy of the item. Used by the feed cache so
// cached candidates are never mutated by concurrent requests.
func (f *FeedItem) Clone() *FeedItem {
	c := *f
	c.Tools = append([]string(nil), f.Tools...)
	c.TechStacks = append([]string(nil), f.TechStacks...)
	c.MediaURLs = append([]string(nil), f.MediaURLs...)
	return &c
}

// Author holds the author metadata the ranking pipeline needs:
// premium status for the premium boost, account age for the
// new-creator boost, and follower count for discovery allocation.
type Author struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	DisplayName        string    `json:"display_name,omitempty"`
	FollowerCount      int       `json:"follower_count"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	LastActiveAt       time.Time `json:"last_active_at"`
}

// IsPremium reports whether the author has an active paid subscription.
func (a Author) IsPremium() bool {
	return a.SubscriptionStatus == "active" || a.SubscriptionStatus == "trialing"
}

// EngagementFlags are the per-viewer flags for a single item.
type EngagementFlags struct {
	Liked      bool
	Bookmarked bool
	Reposted   bool
}

// ItemRef identifies an item for batch flag lookups.
type ItemRef struct {
	Kind ItemKind
	ID   string
}
