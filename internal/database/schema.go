// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package database

import "context"

// schemaStatements mirrors the platform tables Feedrank reads. The
// statements are idempotent so opening an existing platform database
// is a no-op, while standalone and test databases get a full schema.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		username VARCHAR NOT NULL,
		display_name VARCHAR,
		follower_count INTEGER NOT NULL DEFAULT 0,
		subscription_status VARCHAR NOT NULL DEFAULT 'none',
		created_at TIMESTAMP NOT NULL,
		last_active_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		content VARCHAR NOT NULL DEFAULT '',
		has_images BOOLEAN NOT NULL DEFAULT FALSE,
		repost_of VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		has_images BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gigs (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		bid_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		user_id VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		user_id VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reposts (
		user_id VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		user_id VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS item_tags (
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		tag VARCHAR NOT NULL,
		tag_kind VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS item_media (
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		url VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id VARCHAR NOT NULL,
		followee_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		blocker_id VARCHAR NOT NULL,
		blocked_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suggestion_dismissals (
		viewer_id VARCHAR NOT NULL,
		suggested_id VARCHAR NOT NULL,
		dismissed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS engagement_events (
		item_type VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		kind VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// initSchema creates any missing tables.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
