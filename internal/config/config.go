// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package config

import (
	"time"

	"github.com/tomtom215/campusmatch/internal/embedding"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/recommend"
	"github.com/tomtom215/campusmatch/internal/recommend/algorithms"
	"github.com/tomtom215/campusmatch/internal/vectorindex"
)

// Embedding provider names.
const (
	ProviderHashing = "hashing"
	ProviderHTTP    = "http"
)

// Config is the application configuration.
type Config struct {
	Logging   LoggingConfig                 `koanf:"logging"`
	Database  DatabaseConfig                `koanf:"database"`
	Embedding EmbeddingConfig               `koanf:"embedding"`
	Index     vectorindex.Config            `koanf:"index"`
	Model     algorithms.LatentFactorConfig `koanf:"model"`
	Retriever recommend.RetrieverConfig     `koanf:"retriever"`
	Ranker    RankerConfig                  `koanf:"ranker"`
	Explainer recommend.ExplainerConfig     `koanf:"explainer"`
	Reindex   ReindexConfig                 `koanf:"reindex"`
	Server    ServerConfig                  `koanf:"server"`
}

// LoggingConfig holds logging settings.
//
// Defaults: level info, format json, caller false.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the DuckDB reference repository.
//
// Defaults: path data/campusmatch.duckdb, max_memory 1GB, threads 0 (all
// CPUs), preserve_insertion_order false, query_timeout 30s.
type DatabaseConfig struct {
	Path                   string        `koanf:"path" validate:"required"`
	MaxMemory              string        `koanf:"max_memory" validate:"required"`
	Threads                int           `koanf:"threads" validate:"min=0"`
	PreserveInsertionOrder bool          `koanf:"preserve_insertion_order"`
	QueryTimeout           time.Duration `koanf:"query_timeout"`
}

// EmbeddingConfig selects and tunes the embedding provider.
//
// Defaults: provider hashing, dimension 256, batch_size 256, query_timeout
// 2s, timeout 30s, rate_limit 10/s with burst 2, no store (store GC every
// 1h when one is set), breaker enabled.
type EmbeddingConfig struct {
	// Provider is "hashing" (offline feature hashing) or "http"
	// (OpenAI-compatible embeddings endpoint).
	Provider string `koanf:"provider" validate:"oneof=hashing http"`

	BaseURL   string        `koanf:"base_url"`
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	Dimension int           `koanf:"dimension" validate:"min=1"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit" validate:"min=0"`
	Burst     int           `koanf:"burst" validate:"min=0"`

	BatchSize    int           `koanf:"batch_size"`
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// StorePath enables the persistent vector store when set.
	StorePath string `koanf:"store_path"`

	// StoreGCInterval between value log GC passes on the store. 0 disables.
	StoreGCInterval time.Duration `koanf:"store_gc_interval"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker around the provider.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// RankerConfig groups the ranking settings: peer and result limits, category
// weights, the category/signal blend and the response cache.
//
// Defaults: peers_per_institution 3, default_top_n 10, concurrency 0
// (GOMAXPROCS), default weights, blend 0.7/0.3, response cache 1024 entries
// for 5m.
type RankerConfig struct {
	PeersPerInstitution int                           `koanf:"peers_per_institution"`
	DefaultTopN         int                           `koanf:"default_top_n"`
	Concurrency         int                           `koanf:"concurrency"`
	Weights             recommend.CategoryWeights     `koanf:"weights"`
	Blend               recommend.BlendConfig         `koanf:"blend"`
	ResponseCache       recommend.ResponseCacheConfig `koanf:"response_cache"`
}

// ReindexConfig controls background index builds.
//
// Defaults: on_startup true, interval 6h, timeout 10m. An interval of 0
// disables periodic rebuilds.
type ReindexConfig struct {
	OnStartup bool          `koanf:"on_startup"`
	Interval  time.Duration `koanf:"interval" validate:"min=0"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ServerConfig configures the ops HTTP server.
//
// Defaults: enabled, 0.0.0.0:8080, read 10s, write 30s, shutdown 10s,
// 120 /api/v1 requests per client IP per minute.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests caps /api/v1 requests per client IP per window.
	// 0 disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns a Config with every default applied. Engine
// defaults come from the engine packages themselves.
func defaultConfig() *Config {
	engine := recommend.DefaultConfig()
	cache := embedding.DefaultCacheConfig()
	breaker := embedding.DefaultBreakerConfig()

	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:         "data/campusmatch.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:     ProviderHashing,
			BaseURL:      embedding.DefaultBaseURL,
			Model:        embedding.DefaultModel,
			Dimension:    256,
			Timeout:      30 * time.Second,
			RateLimit:    embedding.DefaultRateLimit,
			Burst:        2,
			BatchSize:    cache.BatchSize,
			QueryTimeout: cache.QueryTimeout,

			StoreGCInterval: time.Hour,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  breaker.MaxRequests,
				Interval:     breaker.Interval,
				Timeout:      breaker.Timeout,
				MinRequests:  breaker.MinRequests,
				FailureRatio: breaker.FailureRatio,
			},
		},
		Index:     engine.Index,
		Model:     engine.Model,
		Retriever: engine.Retriever,
		Ranker: RankerConfig{
			PeersPerInstitution: engine.Ranker.PeersPerInstitution,
			DefaultTopN:         engine.Ranker.DefaultTopN,
			Concurrency:         engine.Ranker.Concurrency,
			Weights:             engine.Weights,
			Blend:               engine.Blend,
			ResponseCache:       engine.ResponseCache,
		},
		Explainer: engine.Explainer,
		Reindex: ReindexConfig{
			OnStartup: true,
			Interval:  6 * time.Hour,
			Timeout:   10 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
	}
}

// Engine maps the application configuration onto the engine configuration.
func (c *Config) Engine() *recommend.Config {
	return &recommend.Config{
		Weights:   c.Ranker.Weights,
		Blend:     c.Ranker.Blend,
		Retriever: c.Retriever,
		Ranker: recommend.RankerConfig{
			PeersPerInstitution: c.Ranker.PeersPerInstitution,
			DefaultTopN:         c.Ranker.DefaultTopN,
			Concurrency:         c.Ranker.Concurrency,
		},
		Explainer:     c.Explainer,
		ResponseCache: c.Ranker.ResponseCache,
		Model:         c.Model,
		Index:         c.Index,
	}
}

// LoggerConfig maps the logging section onto logging.Config. Output stays
// at its default.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// HTTPConfig maps the embedding section onto the HTTP provider config.
func (e *EmbeddingConfig) HTTPConfig() embedding.HTTPConfig {
	return embedding.HTTPConfig{
		BaseURL:   e.BaseURL,
		APIKey:    e.APIKey,
		Model:     e.Model,
		Dimension: e.Dimension,
		Timeout:   e.Timeout,
		RateLimit: e.RateLimit,
		Burst:     e.Burst,
	}
}

// CacheConfig maps the embedding section onto the embedding cache config.
func (e *EmbeddingConfig) CacheConfig() embedding.CacheConfig {
	return embedding.CacheConfig{BatchSize: e.BatchSize, QueryTimeout: e.QueryTimeout}
}

// Settings maps the breaker section onto the provider breaker config.
func (b BreakerConfig) Settings() embedding.BreakerConfig {
	return embedding.BreakerConfig{
		MaxRequests:  b.MaxRequests,
		Interval:     b.Interval,
		Timeout:      b.Timeout,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}
