// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"negative threads", func(c *Config) { c.Database.Threads = -1 }},
		{"zero default page size", func(c *Config) { c.API.DefaultPageSize = 0 }},
		{"max below default page size", func(c *Config) { c.API.MaxPageSize = c.API.DefaultPageSize - 1 }},
		{"negative engagement weight", func(c *Config) { c.Ranking.WeightComment = -1 }},
		{"zero gravity", func(c *Config) { c.Ranking.Gravity = 0 }},
		{"zero freshness hours", func(c *Config) { c.Ranking.FreshnessHours = 0 }},
		{"zero window days", func(c *Config) { c.Ranking.WindowDays = 0 }},
		{"negative min feed items", func(c *Config) { c.Ranking.MinFeedItems = -1 }},
		{"boost below one", func(c *Config) { c.Ranking.PreferenceBoost = 0.9 }},
		{"zero new creator threshold", func(c *Config) { c.Ranking.NewCreatorThresholdDays = 0 }},
		{"negative discovery slots", func(c *Config) { c.Ranking.DiscoverySlots = -1 }},
		{"zero max items per author", func(c *Config) { c.Ranking.MaxItemsPerAuthor = 0 }},
		{"discount above one", func(c *Config) { c.Ranking.SelfEngagementDiscount = 1.5 }},
		{"zero cache ttl", func(c *Config) { c.Ranking.CacheTTL = 0 }},
		{"zero trending gravity", func(c *Config) { c.Trending.Gravity = 0 }},
		{"zero overfetch factor", func(c *Config) { c.Trending.OverfetchFactor = 0 }},
		{"inverted velocity windows", func(c *Config) { c.Trending.OlderHours = c.Trending.RecentHours }},
		{"trending max boost below one", func(c *Config) { c.Trending.MaxBoost = 0.5 }},
		{"signal weights not summing to one", func(c *Config) { c.Suggest.GraphWeight = 0.5 }},
		{"negative bookmark factor", func(c *Config) {
			// keep the weight sum intact while breaking the factor
			c.Suggest.BookmarkFactor = -1
		}},
		{"negative dismissal days", func(c *Config) { c.Suggest.DismissalDays = -1 }},
		{"zero candidate pool", func(c *Config) { c.Suggest.CandidatePoolSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestSignalWeightSumTolerance(t *testing.T) {
	cfg := defaultConfig()
	// Floating point assembly of 0.35+0.25+0.25+0.15 must not be
	// rejected by an exact-equality check.
	cfg.Suggest.GraphWeight = 0.1
	cfg.Suggest.PopularityWeight = 0.2
	cfg.Suggest.RelevanceWeight = 0.3
	cfg.Suggest.DiversityWeight = 0.4
	if err := cfg.Validate(); err != nil {
		t.Errorf("weight sum within tolerance rejected: %v", err)
	}
}

func TestEnvTransformDropsUnknownVariables(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("unrelated env var mapped to %q, want dropped", got)
	}
	if got := envTransformFunc("HTTP_PORT"); got != "server.port" {
		t.Errorf("HTTP_PORT mapped to %q, want server.port", got)
	}
	if got := envTransformFunc("ranking_gravity"); got != "ranking.gravity" {
		t.Errorf("lowercase env var mapped to %q, want ranking.gravity", got)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("RANKING_GRAVITY", "2.5")
	t.Setenv("API_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("database path = %q, want :memory:", cfg.Database.Path)
	}
	if cfg.Ranking.Gravity != 2.5 {
		t.Errorf("gravity = %v, want 2.5", cfg.Ranking.Gravity)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != want[0] || cfg.API.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.API.CORSOrigins, want)
	}
	// Untouched fields keep their defaults.
	if cfg.Ranking.WeightComment != 10.0 {
		t.Errorf("weight_comment = %v, want default 10.0", cfg.Ranking.WeightComment)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Server.Timeout)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")
	if _, err := Load(); err == nil {
		t.Fatal("Load with port 0 must fail validation")
	}
}
