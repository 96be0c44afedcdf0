// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/database"
	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/models"
)

// viewerHeader carries the authenticated viewer id, set by the
// platform gateway in front of this service.
const viewerHeader = "X-Viewer-ID"

// FeedService serves the ranked and chronological feeds.
type FeedService interface {
	ForYou(ctx context.Context, req feed.ForYouRequest) (*models.FeedPage, error)
	FollowingFeed(ctx context.Context, viewerID string, limit int, cursor string) (*models.FeedPage, error)
}

// TrendingService serves velocity-ranked trending projects.
type TrendingService interface {
	Projects(ctx context.Context, limit int) ([]*models.FeedItem, error)
}

// SuggestService serves who-to-follow suggestions.
type SuggestService interface {
	SuggestedUsers(ctx context.Context, viewerID string, limit int) ([]models.SuggestedUser, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers for all feed surfaces.
type Handler struct {
	feeds    FeedService
	trending TrendingService
	suggest  SuggestService
	db       HealthChecker
	cfg      *config.APIConfig
	started  time.Time
}

// NewHandler creates the handler set.
func NewHandler(feeds FeedService, trending TrendingService, suggest SuggestService, db HealthChecker, cfg *config.APIConfig) *Handler {
	return &Handler{
		feeds:    feeds,
		trending: trending,
		suggest:  suggest,
		db:       db,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// feedRequest is the validated query surface shared by the ranked and
// chronological feed endpoints. Limit carries no validate tag: it is
// clamped to the configured page bounds before validation runs.
type feedRequest struct {
	ViewerID string   `validate:"omitempty,max=64"`
	Limit    int      `validate:"-"`
	Cursor   string   `validate:"omitempty,max=512"`
	Tools    []string `validate:"omitempty,max=20,dive,max=64"`
	Stacks   []string `validate:"omitempty,max=20,dive,max=64"`
}

// parseFeedRequest extracts and clamps the common feed parameters.
func (h *Handler) parseFeedRequest(r *http.Request) feedRequest {
	limit := getIntParam(r, "limit", h.cfg.DefaultPageSize)
	if limit < 1 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	return feedRequest{
		ViewerID: r.Header.Get(viewerHeader),
		Limit:    limit,
		Cursor:   r.URL.Query().Get("cursor"),
		Tools:    parseCommaSeparated(r.URL.Query().Get("tools")),
		Stacks:   parseCommaSeparated(r.URL.Query().Get("stacks")),
	}
}

// ForYouFeed serves GET /api/v1/feed/for-you.
//
// An invalid or malformed cursor is treated as a first-page request,
// never an error.
func (h *Handler) ForYouFeed(w http.ResponseWriter, r *http.Request) {
	req := h.parseFeedRequest(r)
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	page, err := h.feeds.ForYou(r.Context(), feed.ForYouRequest{
		Limit:    req.Limit,
		Cursor:   req.Cursor,
		ViewerID: req.ViewerID,
		Tools:    req.Tools,
		Stacks:   req.Stacks,
	})
	if err != nil {
		h.respondServiceError(w, r, "for_you", err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// FollowingFeed serves GET /api/v1/feed/following. The viewer header
// is required; there is no anonymous following feed.
func (h *Handler) FollowingFeed(w http.ResponseWriter, r *http.Request) {
	req := h.parseFeedRequest(r)
	if req.ViewerID == "" {
		respondError(w, http.StatusBadRequest, "missing_viewer", nil)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	page, err := h.feeds.FollowingFeed(r.Context(), req.ViewerID, req.Limit, req.Cursor)
	if err != nil {
		h.respondServiceError(w, r, "following", err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// TrendingProjects serves GET /api/v1/trending/projects.
func (h *Handler) TrendingProjects(w http.ResponseWriter, r *http.Request) {
	req := h.parseFeedRequest(r)
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	items, err := h.trending.Projects(r.Context(), req.Limit)
	if err != nil {
		h.respondServiceError(w, r, "trending", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SuggestedUsers serves GET /api/v1/users/suggested.
func (h *Handler) SuggestedUsers(w http.ResponseWriter, r *http.Request) {
	req := h.parseFeedRequest(r)
	if req.ViewerID == "" {
		respondError(w, http.StatusBadRequest, "missing_viewer", nil)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	users, err := h.suggest.SuggestedUsers(r.Context(), req.ViewerID, req.Limit)
	if err != nil {
		h.respondServiceError(w, r, "suggested_users", err)
		return
	}
	if users == nil {
		users = []models.SuggestedUser{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// respondServiceError maps pipeline failures to HTTP statuses. A store
// outage is a distinguishable 503; everything else is a 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, surface string, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("surface", surface).Msg("Feed request failed")
	if errors.Is(err, database.ErrSourceUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "source_unavailable", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", nil)
}

// Health serves GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// HealthLive serves GET /api/v1/health/live. Liveness only checks the
// process, never dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady serves GET /api/v1/health/ready, verifying the store is
// reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Readiness check failed")
		respondError(w, http.StatusServiceUnavailable, "not_ready", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
