// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// engagement scalar subqueries shared by the post and project queries.
// The self_* columns count engagement by the item's own author so the
// scoring engine can discount it.
const postColumns = `
	p.id,
	p.author_id,
	p.content,
	p.has_images,
	p.repost_of,
	p.created_at,
	(SELECT COUNT(*) FROM likes     e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS likes,
	(SELECT COUNT(*) FROM comments  e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS comments,
	(SELECT COUNT(*) FROM reposts   e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS reposts,
	(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS bookmarks,
	(SELECT COUNT(*) FROM quotes    e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS quotes,
	(SELECT COUNT(*) FROM likes     e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id AND e.user_id = p.author_id) AS self_likes,
	(SELECT COUNT(*) FROM comments  e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id AND e.user_id = p.author_id) AS self_comments,
	(SELECT COUNT(*) FROM reposts   e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id AND e.user_id = p.author_id) AS self_reposts,
	(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id AND e.user_id = p.author_id) AS self_bookmarks,
	(SELECT COUNT(*) FROM quotes    e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id AND e.user_id = p.author_id) AS self_quotes`

const projectColumns = `
	p.id,
	p.author_id,
	p.title,
	p.description,
	p.has_images,
	p.created_at,
	(SELECT COUNT(*) FROM likes     e WHERE e.item_type = 'project' AND e.item_id = p.id) AS likes,
	(SELECT COUNT(*) FROM comments  e WHERE e.item_type = 'project' AND e.item_id = p.id) AS comments,
	(SELECT COUNT(*) FROM reposts   e WHERE e.item_type = 'project' AND e.item_id = p.id) AS reposts,
	(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type = 'project' AND e.item_id = p.id) AS bookmarks,
	(SELECT COUNT(*) FROM quotes    e WHERE e.item_type = 'project' AND e.item_id = p.id) AS quotes,
	(SELECT COUNT(*) FROM likes     e WHERE e.item_type = 'project' AND e.item_id = p.id AND e.user_id = p.author_id) AS self_likes,
	(SELECT COUNT(*) FROM comments  e WHERE e.item_type = 'project' AND e.item_id = p.id AND e.user_id = p.author_id) AS self_comments,
	(SELECT COUNT(*) FROM reposts   e WHERE e.item_type = 'project' AND e.item_id = p.id AND e.user_id = p.author_id) AS self_reposts,
	(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type = 'project' AND e.item_id = p.id AND e.user_id = p.author_id) AS self_bookmarks,
	(SELECT COUNT(*) FROM quotes    e WHERE e.item_type = 'project' AND e.item_id = p.id AND e.user_id = p.author_id) AS self_quotes`

// PostsSince returns posts and reposts created after since, with
// engagement counters and associations batch-loaded.
func (db *DB) PostsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.postsSince(ctx, since, tools, stacks)
	metrics.ObserveStoreQuery("posts_since", start, err)
	return items, sourceErr("posts_since", err)
}

func (db *DB) postsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	query := "SELECT" + postColumns + "\nFROM posts p\nWHERE p.created_at > ?"
	args := []any{since}

	if clause, clauseArgs := tagFilterClause("p.id", []string{"post", "repost"}, tools, stacks); clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}
	query += "\nORDER BY p.created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.FeedItem
	for rows.Next() {
		item := &models.FeedItem{}
		var content string
		var repostOf sql.NullString
		if err := rows.Scan(
			&item.ID, &item.AuthorID, &content, &item.HasImages, &repostOf, &item.SortDate,
			&item.Engagement.Likes, &item.Engagement.Comments, &item.Engagement.Reposts,
			&item.Engagement.Bookmarks, &item.Engagement.Quotes,
			&item.SelfEngagement.Likes, &item.SelfEngagement.Comments, &item.SelfEngagement.Reposts,
			&item.SelfEngagement.Bookmarks, &item.SelfEngagement.Quotes,
		); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		item.Kind = models.KindPost
		if repostOf.Valid {
			item.Kind = models.KindRepost
		}
		item.Description = content
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadAssociations(ctx, []string{"post", "repost"}, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ProjectsSince returns projects created after since.
func (db *DB) ProjectsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.projectsSince(ctx, since, tools, stacks)
	metrics.ObserveStoreQuery("projects_since", start, err)
	return items, sourceErr("projects_since", err)
}

func (db *DB) projectsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	query := "SELECT" + projectColumns + "\nFROM projects p\nWHERE p.created_at > ?"
	args := []any{since}

	if clause, clauseArgs := tagFilterClause("p.id", []string{"project"}, tools, stacks); clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}
	query += "\nORDER BY p.created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
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

// GigsSince returns gigs created after since. Gig engagement is bids
// and views carried on the gig row itself, not event tables.
func (db *DB) GigsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.gigsSince(ctx, since, tools, stacks)
	metrics.ObserveStoreQuery("gigs_since", start, err)
	return items, sourceErr("gigs_since", err)
}

func (db *DB) gigsSince(ctx context.Context, since time.Time, tools, stacks []string) ([]*models.FeedItem, error) {
	query := `SELECT g.id, g.author_id, g.title, g.description, g.bid_count, g.view_count, g.created_at
FROM gigs g
WHERE g.created_at > ?`
	args := []any{since}

	if clause, clauseArgs := tagFilterClause("g.id", []string{"gig"}, tools, stacks); clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}
	query += "\nORDER BY g.created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.FeedItem
	for rows.Next() {
		item := &models.FeedItem{Kind: models.KindGig}
		if err := rows.Scan(
			&item.ID, &item.AuthorID, &item.Title, &item.Description,
			&item.Engagement.Bids, &item.Engagement.Views, &item.SortDate,
		); err != nil {
			return nil, fmt.Errorf("scan gig row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadAssociations(ctx, []string{"gig"}, items); err != nil {
		return nil, err
	}
	return items, nil
}

// BackfillItems returns posts and projects created before the recent
// window, ordered by total engagement volume, excluding ids already in
// the pool.
func (db *DB) BackfillItems(ctx context.Context, before time.Time, excludeIDs []string, limit int) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.backfillItems(ctx, before, excludeIDs, limit)
	metrics.ObserveStoreQuery("backfill_items", start, err)
	return items, sourceErr("backfill_items", err)
}

func (db *DB) backfillItems(ctx context.Context, before time.Time, excludeIDs []string, limit int) ([]*models.FeedItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	exclude := ""
	var excludeArgs []any
	if len(excludeIDs) > 0 {
		exclude = fmt.Sprintf(" AND p.id NOT IN (%s)", placeholders(len(excludeIDs)))
		excludeArgs = stringArgs(excludeIDs)
	}

	// Both branches are column-aligned so the UNION types match.
	query := `SELECT * FROM (
	SELECT
		p.id, p.author_id, 'post' AS src,
		'' AS title, p.content AS description,
		p.has_images, (p.repost_of IS NOT NULL) AS is_repost, p.created_at,
		(SELECT COUNT(*) FROM likes     e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS likes,
		(SELECT COUNT(*) FROM comments  e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS comments,
		(SELECT COUNT(*) FROM reposts   e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS reposts,
		(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS bookmarks,
		(SELECT COUNT(*) FROM quotes    e WHERE e.item_type IN ('post','repost') AND e.item_id = p.id) AS quotes
	FROM posts p
	WHERE p.created_at <= ?` + exclude + `
	UNION ALL
	SELECT
		p.id, p.author_id, 'project' AS src,
		p.title, p.description,
		p.has_images, FALSE AS is_repost, p.created_at,
		(SELECT COUNT(*) FROM likes     e WHERE e.item_type = 'project' AND e.item_id = p.id) AS likes,
		(SELECT COUNT(*) FROM comments  e WHERE e.item_type = 'project' AND e.item_id = p.id) AS comments,
		(SELECT COUNT(*) FROM reposts   e WHERE e.item_type = 'project' AND e.item_id = p.id) AS reposts,
		(SELECT COUNT(*) FROM bookmarks e WHERE e.item_type = 'project' AND e.item_id = p.id) AS bookmarks,
		(SELECT COUNT(*) FROM quotes    e WHERE e.item_type = 'project' AND e.item_id = p.id) AS quotes
	FROM projects p
	WHERE p.created_at <= ?` + exclude + `
)
ORDER BY (likes + comments + reposts + bookmarks + quotes) DESC
LIMIT ?`

	args := []any{before}
	args = append(args, excludeArgs...)
	args = append(args, before)
	args = append(args, excludeArgs...)
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.FeedItem
	for rows.Next() {
		item := &models.FeedItem{}
		var src string
		var isRepost bool
		if err := rows.Scan(
			&item.ID, &item.AuthorID, &src,
			&item.Title, &item.Description,
			&item.HasImages, &isRepost, &item.SortDate,
			&item.Engagement.Likes, &item.Engagement.Comments, &item.Engagement.Reposts,
			&item.Engagement.Bookmarks, &item.Engagement.Quotes,
		); err != nil {
			return nil, fmt.Errorf("scan backfill row: %w", err)
		}
		switch {
		case src == "project":
			item.Kind = models.KindProject
		case isRepost:
			item.Kind = models.KindRepost
		default:
			item.Kind = models.KindPost
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadAssociations(ctx, []string{"post", "repost", "project"}, items); err != nil {
		return nil, err
	}
	return items, nil
}

const followingQuery = `SELECT` + postColumns + `
FROM posts p
JOIN follows f ON f.followee_id = p.author_id
WHERE f.follower_id = ?
ORDER BY p.created_at DESC
LIMIT ?`

const followingBeforeQuery = `SELECT` + postColumns + `
FROM posts p
JOIN follows f ON f.followee_id = p.author_id
WHERE f.follower_id = ? AND p.created_at < ?
ORDER BY p.created_at DESC
LIMIT ?`

// FollowingItems returns posts by authors the viewer follows, newest
// first, strictly older than before when set.
func (db *DB) FollowingItems(ctx context.Context, viewerID string, before *time.Time, limit int) ([]*models.FeedItem, error) {
	start := time.Now()
	items, err := db.followingItems(ctx, viewerID, before, limit)
	metrics.ObserveStoreQuery("following_items", start, err)
	return items, sourceErr("following_items", err)
}

func (db *DB) followingItems(ctx context.Context, viewerID string, before *time.Time, limit int) ([]*models.FeedItem, error) {
	query := followingQuery
	args := []any{viewerID, limit}
	if before != nil {
		query = followingBeforeQuery
		args = []any{viewerID, *before, limit}
	}

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.FeedItem
	for rows.Next() {
		item := &models.FeedItem{}
		var content string
		var repostOf sql.NullString
		if err := rows.Scan(
			&item.ID, &item.AuthorID, &content, &item.HasImages, &repostOf, &item.SortDate,
			&item.Engagement.Likes, &item.Engagement.Comments, &item.Engagement.Reposts,
			&item.Engagement.Bookmarks, &item.Engagement.Quotes,
			&item.SelfEngagement.Likes, &item.SelfEngagement.Comments, &item.SelfEngagement.Reposts,
			&item.SelfEngagement.Bookmarks, &item.SelfEngagement.Quotes,
		); err != nil {
			return nil, fmt.Errorf("scan following row: %w", err)
		}
		item.Kind = models.KindPost
		if repostOf.Valid {
			item.Kind = models.KindRepost
		}
		item.Description = content
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadAssociations(ctx, []string{"post", "repost"}, items); err != nil {
		return nil, err
	}
	return items, nil
}

// scanProjectRows scans rows shaped like projectColumns.
func scanProjectRows(rows *sql.Rows) ([]*models.FeedItem, error) {
	var items []*models.FeedItem
	for rows.Next() {
		item := &models.FeedItem{Kind: models.KindProject}
		if err := rows.Scan(
			&item.ID, &item.AuthorID, &item.Title, &item.Description, &item.HasImages, &item.SortDate,
			&item.Engagement.Likes, &item.Engagement.Comments, &item.Engagement.Reposts,
			&item.Engagement.Bookmarks, &item.Engagement.Quotes,
			&item.SelfEngagement.Likes, &item.SelfEngagement.Comments, &item.SelfEngagement.Reposts,
			&item.SelfEngagement.Bookmarks, &item.SelfEngagement.Quotes,
		); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// loadAssociations batch-loads tags and media URLs for a result set in
// two queries, never one per item.
func (db *DB) loadAssociations(ctx context.Context, kinds []string, items []*models.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	index := make(map[string]*models.FeedItem, len(items))
	for i, item := range items {
		ids[i] = item.ID
		index[item.ID] = item
	}

	kindList := "'" + strings.Join(kinds, "', '") + "'"
	inList := placeholders(len(ids))
	args := stringArgs(ids)

	tagQuery := fmt.Sprintf(
		"SELECT item_id, tag, tag_kind FROM item_tags WHERE item_type IN (%s) AND item_id IN (%s)",
		kindList, inList)
	rows, err := db.conn.QueryContext(ctx, tagQuery, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, tag, tagKind string
		if err := rows.Scan(&id, &tag, &tagKind); err != nil {
			rows.Close()
			return fmt.Errorf("scan tag row: %w", err)
		}
		if item, ok := index[id]; ok {
			if tagKind == "stack" {
				item.TechStacks = append(item.TechStacks, tag)
			} else {
				item.Tools = append(item.Tools, tag)
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	mediaQuery := fmt.Sprintf(
		"SELECT item_id, url FROM item_media WHERE item_type IN (%s) AND item_id IN (%s)",
		kindList, inList)
	rows, err = db.conn.QueryContext(ctx, mediaQuery, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, url string
		if err := rows.Scan(&id, &url); err != nil {
			return fmt.Errorf("scan media row: %w", err)
		}
		if item, ok := index[id]; ok {
			item.MediaURLs = append(item.MediaURLs, url)
		}
	}
	return rows.Err()
}

// tagFilterClause builds an EXISTS filter over item_tags for the given
// tool and stack tag lists. Matching either list qualifies the item.
func tagFilterClause(idCol string, kinds, tools, stacks []string) (string, []any) {
	if len(tools) == 0 && len(stacks) == 0 {
		return "", nil
	}

	kindList := "'" + strings.Join(kinds, "', '") + "'"

	var conds []string
	var args []any
	if len(tools) > 0 {
		conds = append(conds, fmt.Sprintf("(t.tag_kind = 'tool' AND t.tag IN (%s))", placeholders(len(tools))))
		args = append(args, stringArgs(tools)...)
	}
	if len(stacks) > 0 {
		conds = append(conds, fmt.Sprintf("(t.tag_kind = 'stack' AND t.tag IN (%s))", placeholders(len(stacks))))
		args = append(args, stringArgs(stacks)...)
	}

	clause := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM item_tags t WHERE t.item_type IN (%s) AND t.item_id = %s AND (%s))",
		kindList, idCol, strings.Join(conds, " OR "))
	return clause, args
}
