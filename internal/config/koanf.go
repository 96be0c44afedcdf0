// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedrank/config.yaml",
	"/etc/feedrank/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration in three layers:
//
//  1. Struct defaults (defaultConfig)
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: struct defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when supplied via environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envVarMappings maps environment variable names to koanf config paths.
// Variables not listed here are ignored, so unrelated process environment
// never leaks into the configuration.
var envVarMappings = map[string]string{
	"HTTP_HOST":    "server.host",
	"HTTP_PORT":    "server.port",
	"HTTP_TIMEOUT": "server.timeout",

	"DUCKDB_PATH":       "database.path",
	"DUCKDB_MAX_MEMORY": "database.max_memory",
	"DUCKDB_THREADS":    "database.threads",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",

	"API_DEFAULT_PAGE_SIZE": "api.default_page_size",
	"API_MAX_PAGE_SIZE":     "api.max_page_size",
	"API_RATE_LIMIT_REQS":   "api.rate_limit_reqs",
	"API_RATE_LIMIT_WINDOW": "api.rate_limit_window",
	"API_CORS_ORIGINS":      "api.cors_origins",

	"RANKING_WEIGHT_LIKE":                "ranking.weight_like",
	"RANKING_WEIGHT_COMMENT":             "ranking.weight_comment",
	"RANKING_WEIGHT_REPOST":              "ranking.weight_repost",
	"RANKING_WEIGHT_BOOKMARK":            "ranking.weight_bookmark",
	"RANKING_WEIGHT_QUOTE":               "ranking.weight_quote",
	"RANKING_GRAVITY":                    "ranking.gravity",
	"RANKING_FRESHNESS_BASE":             "ranking.freshness_base",
	"RANKING_FRESHNESS_HOURS":            "ranking.freshness_hours",
	"RANKING_WINDOW_DAYS":                "ranking.window_days",
	"RANKING_MIN_FEED_ITEMS":             "ranking.min_feed_items",
	"RANKING_PREFERENCE_BOOST":           "ranking.preference_boost",
	"RANKING_PREMIUM_BOOST":              "ranking.premium_boost",
	"RANKING_NEW_CREATOR_MAX_BOOST":      "ranking.new_creator_max_boost",
	"RANKING_NEW_CREATOR_THRESHOLD_DAYS": "ranking.new_creator_threshold_days",
	"RANKING_DISCOVERY_SLOTS":            "ranking.discovery_slots",
	"RANKING_SMALL_CREATOR_FOLLOWERS":    "ranking.small_creator_followers",
	"RANKING_MAX_ITEMS_PER_AUTHOR":       "ranking.max_items_per_author",
	"RANKING_SELF_ENGAGEMENT_DISCOUNT":   "ranking.self_engagement_discount",
	"RANKING_CACHE_TTL":                  "ranking.cache_ttl",

	"TRENDING_WINDOW_DAYS":      "trending.window_days",
	"TRENDING_OVERFETCH_FACTOR": "trending.overfetch_factor",
	"TRENDING_MAX_BOOST":        "trending.max_boost",

	"SUGGEST_GRAPH_WEIGHT":        "suggest.graph_weight",
	"SUGGEST_POPULARITY_WEIGHT":   "suggest.popularity_weight",
	"SUGGEST_RELEVANCE_WEIGHT":    "suggest.relevance_weight",
	"SUGGEST_DIVERSITY_WEIGHT":    "suggest.diversity_weight",
	"SUGGEST_DISMISSAL_DAYS":      "suggest.dismissal_days",
	"SUGGEST_POPULAR_ACTIVE_DAYS": "suggest.popular_active_days",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to "" and are dropped by the env provider.
func envTransformFunc(key string) string {
	if path, ok := envVarMappings[strings.ToUpper(key)]; ok {
		return path
	}
	return ""
}
