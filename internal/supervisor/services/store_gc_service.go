// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GCRunner reclaims space in a persistent store. *embedding.BadgerStore
// satisfies it.
type GCRunner interface {
	RunGC(discardRatio float64) error
}

// defaultDiscardRatio rewrites value log files that are at least half garbage.
const defaultDiscardRatio = 0.5

// StoreGCService periodically garbage-collects the embedding vector store.
// GC failures are logged and retried at the next tick.
type StoreGCService struct {
	store    GCRunner
	interval time.Duration
	logger   zerolog.Logger
}

// NewStoreGCService creates a GC service. A non-positive interval becomes 1h.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStoreGCService(store GCRunner, interval time.Duration, logger zerolog.Logger) *StoreGCService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("service", "store-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(defaultDiscardRatio); err != nil {
				s.logger.Warn().Err(err).Msg("Vector store GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("Vector store GC complete")
		}
	}
}

// String names the service in supervisor events.
func (s *StoreGCService) String() string {
	return "store-gc-service"
}
