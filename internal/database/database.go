// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package database implements the Content Source and Social Graph
// Source over the platform's DuckDB database.
//
// Feedrank is read-only over the platform schema; the only writes this
// package performs are the idempotent schema statements used for
// standalone and test databases.
//
// Every query error is wrapped as the distinguishable
// source_unavailable failure kind (ErrSourceUnavailable). No query is
// retried here; retry and backoff belong to the caller.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/logging"
)

// ErrSourceUnavailable is the distinguishable failure kind for
// underlying store errors, matched with errors.Is.
var ErrSourceUnavailable = errors.New("source unavailable")

// SourceError wraps a store failure with the operation that hit it.
// errors.Is(err, ErrSourceUnavailable) matches every SourceError.
type SourceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *SourceError) Unwrap() error { return e.Err }

// Is matches the ErrSourceUnavailable sentinel.
func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// sourceErr wraps a driver error as a SourceError, passing nil through.
func sourceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Op: op, Err: err}
}

// DB wraps the DuckDB connection and provides the store reads behind
// the ranking pipeline.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Prepared statement caching for fixed-shape queries.
	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// New opens the database and ensures the schema exists.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted
	// network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("Database initialized")
	return db, nil
}

// Conn exposes the underlying connection pool for tests and seeding.
func (db *DB) Conn() *sql.DB { return db.conn }

// Ping verifies the store is reachable, for readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	return sourceErr("ping", db.conn.PingContext(ctx))
}

// Close releases prepared statements and the connection pool.
func (db *DB) Close() error {
	db.stmtCacheMu.Lock()
	for _, stmt := range db.stmtCache {
		_ = stmt.Close()
	}
	db.stmtCache = make(map[string]*sql.Stmt)
	db.stmtCacheMu.Unlock()
	return db.conn.Close()
}

// prepared returns a cached prepared statement for fixed-shape SQL,
// preparing and caching it on first use.
func (db *DB) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtCacheMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	db.stmtCacheMu.Lock()
	if existing, ok := db.stmtCache[query]; ok {
		db.stmtCacheMu.Unlock()
		_ = stmt.Close()
		return existing, nil
	}
	db.stmtCache[query] = stmt
	db.stmtCacheMu.Unlock()
	return stmt, nil
}

// placeholders builds a "?, ?, ?" list for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// stringArgs widens a string slice for variadic query arguments.
func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
