// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package app assembles the CampusMatch components from configuration. Both
// the server and the operator CLI start here, so the two always agree on how
// the database, embedding stack and engine are built.
package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/config"
	"github.com/tomtom215/campusmatch/internal/database"
	"github.com/tomtom215/campusmatch/internal/embedding"
	"github.com/tomtom215/campusmatch/internal/recommend"
)

// Components holds everything built from one configuration.
type Components struct {
	DB       *database.DB
	Provider embedding.Provider
	Store    *embedding.BadgerStore // nil unless embedding.store_path is set
	Embedder *embedding.Cache
	Engine   *recommend.Engine
}

// Open builds the components in dependency order: database, embedding
// provider (optionally behind a circuit breaker), vector store, embedding
// cache, engine. On error everything opened so far is closed.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg *config.Config, logger zerolog.Logger) (c *Components, err error) {
	c = &Components{}
	defer func() {
		if err != nil {
			if closeErr := c.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("Cleanup after failed startup")
			}
			c = nil
		}
	}()

	c.DB, err = database.New(&cfg.Database)
	if err != nil {
		return c, fmt.Errorf("open database: %w", err)
	}

	c.Provider, err = NewProvider(&cfg.Embedding)
	if err != nil {
		return c, err
	}

	var store embedding.VectorStore
	if cfg.Embedding.StorePath != "" {
		c.Store, err = embedding.OpenBadgerStore(cfg.Embedding.StorePath, c.Provider.Name())
		if err != nil {
			return c, err
		}
		store = c.Store
	}

	c.Embedder, err = embedding.NewCache(c.Provider, store, cfg.Embedding.CacheConfig(), logger)
	if err != nil {
		return c, fmt.Errorf("create embedding cache: %w", err)
	}

	c.Engine, err = recommend.NewEngine(cfg.Engine(), c.Embedder, c.DB, logger)
	if err != nil {
		return c, fmt.Errorf("create engine: %w", err)
	}

	logger.Info().
		Str("provider", c.Provider.Name()).
		Int("dimension", c.Provider.Dimension()).
		Bool("vector_store", c.Store != nil).
		Bool("breaker", cfg.Embedding.Breaker.Enabled).
		Str("pool_strategy", cfg.Retriever.PoolStrategy).
		Msg("Components initialized")
	return c, nil
}

// NewProvider builds the configured embedding provider.
func NewProvider(cfg *config.EmbeddingConfig) (embedding.Provider, error) {
	var (
		provider embedding.Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderHashing:
		provider, err = embedding.NewHashingProvider(cfg.Dimension)
	case config.ProviderHTTP:
		provider, err = embedding.NewHTTPProvider(cfg.HTTPConfig())
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedding provider: %w", cfg.Provider, err)
	}

	if cfg.Breaker.Enabled {
		provider = embedding.NewBreakerProvider(provider, cfg.Breaker.Settings())
	}
	return provider, nil
}

// Close releases the vector store and the database.
func (c *Components) Close() error {
	var errs []error
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close vector store: %w", err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
