// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// TrendingProjects returns projects created after since, ordered by
// raw engagement volume, capped at limit. The caller overfetches and
// re-ranks, so ordering here only has to be a reasonable pre-cut.
func (db *DB) TrendingProjects(ctx context.Context, since time.Time, limit int) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.trendingProjects(ctx, since, limit)
	metrics.ObserveStoreQuery("trending_projects", start, err)
	return items, sourceErr("trending_projects", err)
}

func (db *DB) trendingProjects(ctx context.Context, since time.Time, limit int) ([]*models.FeedItem, error) {
	query := "SELECT" + projectColumns + `
FROM projects p
WHERE p.created_at > ?
ORDER BY (
	(SELECT COUNT(*) FROM likes     e WHERE e.item_type = 'project' AND e.item_id = p.id) +
	(SELECT COUNT(*) FROM comments  e WHERE e.item_type = 'project' AND e.item_id = p.id) +
	(SELECT COUNT(*) FROM reposts   e WHERE e.item_type = 'project' AND e.item_id = p.id) +
	(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type = 'project' AND e.item_id = p.id) +
	(SELECT COUNT(*) FROM quotes    e WHERE e.item_type = 'project' AND e.item_id = p.id)
) DESC
LIMIT ?`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanProjectRows(rows)
	if err != nil {
		return nil, err
	}
	if err := db.loadAssociations(ctx, []string{"project"}, items); err != nil {
		return nil, err
	}
	return items, nil
}

// EngagementWindows returns, per project id, the engagement event
// counts in the recent and older velocity buckets in one batch.
func (db *DB) EngagementWindows(ctx context.Context, ids []string, recentStart, olderStart, now time.Time) (map[string]models.EngagementWindow, error) {
	start := time.Now()
	windows, err := db.engagementWindows(ctx, ids, recentStart, olderStart, now)
	metrics.ObserveStoreQuery("engagement_windows", start, err)
	return windows, sourceErr("engagement_windows", err)
}

func (db *DB) engagementWindows(ctx context.Context, ids []string, recentStart, olderStart, now time.Time) (map[string]models.EngagementWindow, error) {
	windows := make(map[string]models.EngagementWindow, len(ids))
	if len(ids) == 0 {
		return windows, nil
	}

	query := fmt.Sprintf(`SELECT item_id,
	COUNT(*) FILTER (WHERE created_at >= ? AND created_at <= ?) AS recent,
	COUNT(*) FILTER (WHERE created_at >= ? AND created_at < ?) AS older
FROM engagement_events
WHERE item_type = 'project' AND created_at >= ? AND item_id IN (%s)
GROUP BY item_id`, placeholders(len(ids)))

	args := []any{recentStart, now, olderStart, recentStart, olderStart}
	args = append(args, stringArgs(ids)...)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var w models.EngagementWindow
		if err := rows.Scan(&id, &w.Recent, &w.Older); err != nil {
			return nil, fmt.Errorf("scan window row: %w", err)
		}
		windows[id] = w
	}
	return windows, rows.Err()
}

const viewerActivityQuery = `SELECT
	(SELECT COUNT(*) FROM follows WHERE follower_id = ?),
	(SELECT COUNT(*) FROM likes WHERE user_id = ?)`

// ViewerActivity returns the viewer's follow and like counts for
// cold-start detection. An unknown viewer reads as zero activity.
func (db *DB) ViewerActivity(ctx context.Context, viewerID string) (follows, likes int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("viewer_activity", start, err) }()

	stmt, err := db.prepared(ctx, viewerActivityQuery)
	if err != nil {
		return 0, 0, sourceErr("viewer_activity", err)
	}
	if err := stmt.QueryRowContext(ctx, viewerID, viewerID).Scan(&follows, &likes); err != nil {
		return 0, 0, sourceErr("viewer_activity", err)
	}
	return follows, likes, nil
}

const candidateUsersQuery = `SELECT id, username, display_name, follower_count, last_active_at
FROM users
WHERE id <> ?
ORDER BY follower_count DESC, id
LIMIT ?`

// CandidateUsers returns the raw suggestion candidate pool with
// project tags batch-loaded.
func (db *DB) CandidateUsers(ctx context.Context, viewerID string, limit int) ([]models.UserProfile, error) {
	start := time.Now()
	users, err := db.candidateUsers(ctx, viewerID, limit)
	metrics.ObserveStoreQuery("candidate_users", start, err)
	return users, sourceErr("candidate_users", err)
}

func (db *DB) candidateUsers(ctx context.Context, viewerID string, limit int) ([]models.UserProfile, error) {
	stmt, err := db.prepared(ctx, candidateUsersQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, viewerID, limit)
	if err != nil {
		return nil, err
	}
	users, err := scanUserProfiles(rows)
	if err != nil {
		return nil, err
	}
	if err := db.loadUserTags(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

const excludedUsersQuery = `SELECT followee_id FROM follows WHERE follower_id = ?
UNION
SELECT blocked_id FROM blocks WHERE blocker_id = ?
UNION
SELECT blocker_id FROM blocks WHERE blocked_id = ?
UNION
SELECT suggested_id FROM suggestion_dismissals WHERE viewer_id = ? AND dismissed_at > ?`

// ExcludedUserIDs returns the users excluded from suggestions in one
// batch: already followed, blocked in either direction, and recently
// dismissed.
func (db *DB) ExcludedUserIDs(ctx context.Context, viewerID string, dismissedSince time.Time) (map[string]struct{}, error) {
	start := time.Now()
	excluded, err := db.excludedUserIDs(ctx, viewerID, dismissedSince)
	metrics.ObserveStoreQuery("excluded_users", start, err)
	return excluded, sourceErr("excluded_users", err)
}

func (db *DB) excludedUserIDs(ctx context.Context, viewerID string, dismissedSince time.Time) (map[string]struct{}, error) {
	stmt, err := db.prepared(ctx, excludedUsersQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, viewerID, viewerID, viewerID, viewerID, dismissedSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan excluded row: %w", err)
		}
		excluded[id] = struct{}{}
	}
	return excluded, rows.Err()
}

const friendsOfFriendsQuery = `SELECT f2.followee_id, COUNT(*)
FROM follows f1
JOIN follows f2 ON f2.follower_id = f1.followee_id
WHERE f1.follower_id = ? AND f2.followee_id <> ?
GROUP BY f2.followee_id`

// FriendsOfFriends returns, per candidate id, how many of the viewer's
// follows also follow that candidate.
func (db *DB) FriendsOfFriends(ctx context.Context, viewerID string) (map[string]int, error) {
	start := time.Now()
	counts, err := db.friendsOfFriends(ctx, viewerID)
	metrics.ObserveStoreQuery("friends_of_friends", start, err)
	return counts, sourceErr("friends_of_friends", err)
}

func (db *DB) friendsOfFriends(ctx context.Context, viewerID string) (map[string]int, error) {
	stmt, err := db.prepared(ctx, friendsOfFriendsQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, viewerID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan friends-of-friends row: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// engagedCreatorsQuery counts the viewer's engagement rows per content
// author across all three content tables.
const engagedCreatorsQuery = `SELECT author_id, COUNT(*)
FROM (
	SELECT p.author_id FROM %[1]s e JOIN posts    p ON e.item_id = p.id WHERE e.user_id = ?
	UNION ALL
	SELECT p.author_id FROM %[1]s e JOIN projects p ON e.item_id = p.id WHERE e.user_id = ?
	UNION ALL
	SELECT g.author_id FROM %[1]s e JOIN gigs     g ON e.item_id = g.id WHERE e.user_id = ?
)
GROUP BY author_id`

// EngagedCreatorCounts returns, per creator id, how many of that
// creator's items the viewer liked and bookmarked.
func (db *DB) EngagedCreatorCounts(ctx context.Context, viewerID string) (liked, bookmarked map[string]int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("engaged_creators", start, err) }()

	liked, err = db.creatorCounts(ctx, "likes", viewerID)
	if err != nil {
		return nil, nil, sourceErr("engaged_creators", err)
	}
	bookmarked, err = db.creatorCounts(ctx, "bookmarks", viewerID)
	if err != nil {
		return nil, nil, sourceErr("engaged_creators", err)
	}
	return liked, bookmarked, nil
}

func (db *DB) creatorCounts(ctx context.Context, table, viewerID string) (map[string]int, error) {
	query := fmt.Sprintf(engagedCreatorsQuery, table)
	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, viewerID, viewerID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan creator count row: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const viewerLikedTagsQuery = `SELECT DISTINCT t.tag
FROM item_tags t
WHERE t.item_type = 'project' AND t.item_id IN (
	SELECT item_id FROM likes WHERE user_id = ? AND item_type = 'project'
	UNION
	SELECT item_id FROM bookmarks WHERE user_id = ? AND item_type = 'project'
)`

// ViewerLikedTags returns the tool and stack tags of the projects the
// viewer liked or bookmarked.
func (db *DB) ViewerLikedTags(ctx context.Context, viewerID string) ([]string, error) {
	start := time.Now()
	tags, err := db.viewerLikedTags(ctx, viewerID)
	metrics.ObserveStoreQuery("viewer_liked_tags", start, err)
	return tags, sourceErr("viewer_liked_tags", err)
}

func (db *DB) viewerLikedTags(ctx context.Context, viewerID string) ([]string, error) {
	stmt, err := db.prepared(ctx, viewerLikedTagsQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, viewerID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

const popularUsersQuery = `SELECT id, username, display_name, follower_count, last_active_at
FROM users
WHERE last_active_at >= ?
ORDER BY follower_count DESC, id
LIMIT ?`

// PopularUsers returns recently active users ordered by follower
// count, for the cold start fallback.
func (db *DB) PopularUsers(ctx context.Context, activeSince time.Time, limit int) ([]models.UserProfile, error) {
	start := time.Now()
	users, err := db.popularUsers(ctx, activeSince, limit)
	metrics.ObserveStoreQuery("popular_users", start, err)
	return users, sourceErr("popular_users", err)
}

func (db *DB) popularUsers(ctx context.Context, activeSince time.Time, limit int) ([]models.UserProfile, error) {
	stmt, err := db.prepared(ctx, popularUsersQuery)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, activeSince, limit)
	if err != nil {
		return nil, err
	}
	return scanUserProfiles(rows)
}

// scanUserProfiles drains and closes rows shaped like the user profile
// queries.
func scanUserProfiles(rows *sql.Rows) ([]models.UserProfile, error) {
	defer rows.Close()
	var users []models.UserProfile
	for rows.Next() {
		var u models.UserProfile
		var displayName sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &displayName, &u.FollowerCount, &u.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		u.DisplayName = displayName.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// loadUserTags batch-loads the distinct project tags per candidate.
func (db *DB) loadUserTags(ctx context.Context, users []models.UserProfile) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
		index[u.ID] = i
	}

	query := fmt.Sprintf(`SELECT DISTINCT p.author_id, t.tag
FROM item_tags t
JOIN projects p ON p.id = t.item_id AND t.item_type = 'project'
WHERE p.author_id IN (%s)`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var authorID, tag string
		if err := rows.Scan(&authorID, &tag); err != nil {
			return fmt.Errorf("scan user tag row: %w", err)
		}
		if i, ok := index[authorID]; ok {
			users[i].Tags = append(users[i].Tags, tag)
		}
	}
	return rows.Err()
}
