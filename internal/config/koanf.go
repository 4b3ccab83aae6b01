// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

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

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/campusmatch/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database
	"duckdb_path":                     "database.path",
	"duckdb_max_memory":               "database.max_memory",
	"duckdb_threads":                  "database.threads",
	"duckdb_preserve_insertion_order": "database.preserve_insertion_order",
	"duckdb_query_timeout":            "database.query_timeout",

	// Embedding
	"embedding_provider":              "embedding.provider",
	"embedding_base_url":              "embedding.base_url",
	"embedding_api_key":               "embedding.api_key",
	"embedding_model":                 "embedding.model",
	"embedding_dimension":             "embedding.dimension",
	"embedding_timeout":               "embedding.timeout",
	"embedding_rate_limit":            "embedding.rate_limit",
	"embedding_burst":                 "embedding.burst",
	"embedding_batch_size":            "embedding.batch_size",
	"embedding_query_timeout":         "embedding.query_timeout",
	"embedding_store_path":            "embedding.store_path",
	"embedding_store_gc_interval":     "embedding.store_gc_interval",
	"embedding_breaker_enabled":       "embedding.breaker.enabled",
	"embedding_breaker_timeout":       "embedding.breaker.timeout",
	"embedding_breaker_failure_ratio": "embedding.breaker.failure_ratio",

	// Index
	"index_m":               "index.m",
	"index_ef_construction": "index.ef_construction",
	"index_ef_search":       "index.ef_search",
	"index_max_k":           "index.max_k",
	"index_seed":            "index.seed",

	// Model
	"model_factors":        "model.factors",
	"model_epochs":         "model.epochs",
	"model_learning_rate":  "model.learning_rate",
	"model_regularization": "model.regularization",
	"model_seed":           "model.seed",

	// Retriever
	"retriever_max_candidates":                    "retriever.max_candidates",
	"retriever_fallback_max_institutions":         "retriever.fallback_max_institutions",
	"retriever_fallback_subjects_per_institution": "retriever.fallback_subjects_per_institution",
	"retriever_pool_strategy":                     "retriever.pool_strategy",

	// Ranker
	"ranker_peers_per_institution": "ranker.peers_per_institution",
	"ranker_default_top_n":         "ranker.default_top_n",
	"ranker_concurrency":           "ranker.concurrency",
	"ranker_blend_category":        "ranker.blend.category",
	"ranker_blend_signal":          "ranker.blend.signal",
	"rank_cache_size":              "ranker.response_cache.size",
	"rank_cache_ttl":               "ranker.response_cache.ttl",

	// Explainer
	"explainer_strength_threshold":      "explainer.strength_threshold",
	"explainer_consideration_threshold": "explainer.consideration_threshold",

	// Reindex
	"reindex_on_startup": "reindex.on_startup",
	"reindex_interval":   "reindex.interval",
	"reindex_timeout":    "reindex.timeout",

	// Server
	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"http_rate_limit_requests": "server.rate_limit_requests",
	"http_rate_limit_window":   "server.rate_limit_window",
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it. An explicit path takes precedence
// over CONFIG_PATH and the default search paths; a missing explicit path is
// an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
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

// Default returns the validated default configuration without reading any
// file or environment variable.
func Default() *Config {
	return defaultConfig()
}

// findConfigFile returns the first config file that exists, or "".
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

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
