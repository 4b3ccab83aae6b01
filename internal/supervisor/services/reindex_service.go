// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/recommend"
)

// Reindexer reloads the engine snapshot from its repository and rebuilds the
// indexes. *recommend.Engine satisfies it.
type Reindexer interface {
	Reload(ctx context.Context) error
}

// ReindexConfig controls when rebuilds run.
type ReindexConfig struct {
	// OnStartup runs a rebuild as soon as the service starts.
	OnStartup bool

	// Interval between periodic rebuilds. 0 disables them.
	Interval time.Duration

	// Timeout bounds a single rebuild. Default: 10m.
	Timeout time.Duration
}

// ReindexService keeps the engine indexes fresh. A failed rebuild is logged
// and retried at the next tick; the engine keeps serving the previous
// generation in the meantime, so failures never crash the service.
type ReindexService struct {
	engine Reindexer
	cfg    ReindexConfig
	logger zerolog.Logger
}

// NewReindexService creates a reindex service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReindexService(engine Reindexer, cfg ReindexConfig, logger zerolog.Logger) *ReindexService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &ReindexService{
		engine: engine,
		cfg:    cfg,
		logger: logger.With().Str("service", "reindex").Logger(),
	}
}

// Serve implements suture.Service.
func (s *ReindexService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.cfg.OnStartup).
		Dur("interval", s.cfg.Interval).
		Msg("Reindex service starting")

	if s.cfg.OnStartup {
		s.reindex(ctx, "startup")
	}

	if s.cfg.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Reindex service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.reindex(ctx, "scheduled")
		}
	}
}

func (s *ReindexService) reindex(ctx context.Context, trigger string) {
	buildCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.engine.Reload(buildCtx)
	switch {
	case err == nil:
		s.logger.Info().
			Str("trigger", trigger).
			Dur("duration", time.Since(start)).
			Msg("Reindex complete")
	case errors.Is(err, recommend.ErrBuildInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("Reindex skipped, build already running")
	case ctx.Err() != nil:
		// Shutting down.
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("Reindex failed, keeping previous indexes")
	}
}

// String names the service in supervisor events.
func (s *ReindexService) String() string {
	return "reindex-service"
}
