// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/feedrank/internal/metrics"
	"github.com/tomtom215/feedrank/internal/models"
)

// AuthorsByID returns author metadata for the distinct id set in one
// batch. Unknown ids are simply absent from the result map.
func (db *DB) AuthorsByID(ctx context.Context, ids []string) (map[string]models.Author, error) {
	start := time.Now()
	authors, err := db.authorsByID(ctx, ids)
	metrics.ObserveStoreQuery("authors_by_id", start, err)
	return authors, sourceErr("authors_by_id", err)
}

func (db *DB) authorsByID(ctx context.Context, ids []string) (map[string]models.Author, error) {
	if len(ids) == 0 {
		return map[string]models.Author{}, nil
	}

	query := fmt.Sprintf(`SELECT id, username, display_name, follower_count, subscription_status, created_at, last_active_at
FROM users
WHERE id IN (%s)`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := make(map[string]models.Author, len(ids))
	for rows.Next() {
		var a models.Author
		var displayName sql.NullString
		if err := rows.Scan(&a.ID, &a.Username, &displayName, &a.FollowerCount,
			&a.SubscriptionStatus, &a.CreatedAt, &a.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan author row: %w", err)
		}
		a.DisplayName = displayName.String
		authors[a.ID] = a
	}
	return authors, rows.Err()
}

// EngagementFlags returns the viewer's liked, bookmarked, and reposted
// flags for the given items in one batch per flag table.
func (db *DB) EngagementFlags(ctx context.Context, viewerID string, refs []models.ItemRef) (map[models.ItemRef]models.EngagementFlags, error) {
	start := time.Now()
	flags, err := db.engagementFlags(ctx, viewerID, refs)
	metrics.ObserveStoreQuery("engagement_flags", start, err)
	return flags, sourceErr("engagement_flags", err)
}

func (db *DB) engagementFlags(ctx context.Context, viewerID string, refs []models.ItemRef) (map[models.ItemRef]models.EngagementFlags, error) {
	flags := make(map[models.ItemRef]models.EngagementFlags, len(refs))
	if len(refs) == 0 {
		return flags, nil
	}

	ids := make([]string, len(refs))
	byKey := make(map[models.ItemRef]models.ItemRef, len(refs)*2)
	typeSet := make(map[string]struct{}, 4)
	for i, ref := range refs {
		ids[i] = ref.ID
		byKey[ref] = ref
		typeSet[string(ref.Kind)] = struct{}{}
		// Engagement on a post and on its repost rows is interchangeable,
		// matching the ('post','repost') predicates of the window queries.
		if ref.Kind == models.KindPost || ref.Kind == models.KindRepost {
			sibling := models.KindRepost
			if ref.Kind == models.KindRepost {
				sibling = models.KindPost
			}
			byKey[models.ItemRef{Kind: sibling, ID: ref.ID}] = ref
			typeSet[string(sibling)] = struct{}{}
		}
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	mark := func(table string, set func(*models.EngagementFlags)) error {
		query := fmt.Sprintf("SELECT item_type, item_id FROM %s WHERE user_id = ? AND item_type IN (%s) AND item_id IN (%s)",
			table, placeholders(len(types)), placeholders(len(ids)))
		args := append([]any{viewerID}, stringArgs(types)...)
		args = append(args, stringArgs(ids)...)

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var itemType, id string
			if err := rows.Scan(&itemType, &id); err != nil {
				return fmt.Errorf("scan %s flag row: %w", table, err)
			}
			if ref, ok := byKey[models.ItemRef{Kind: models.ItemKind(itemType), ID: id}]; ok {
				f := flags[ref]
				set(&f)
				flags[ref] = f
			}
		}
		return rows.Err()
	}

	if err := mark("likes", func(f *models.EngagementFlags) { f.Liked = true }); err != nil {
		return nil, err
	}
	if err := mark("bookmarks", func(f *models.EngagementFlags) { f.Bookmarked = true }); err != nil {
		return nil, err
	}
	if err := mark("reposts", func(f *models.EngagementFlags) { f.Reposted = true }); err != nil {
		return nil, err
	}
	return flags, nil
}
