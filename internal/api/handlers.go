// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/recommend"
)

// Engine is the part of *recommend.Engine the handlers use.
type Engine interface {
	RankWithOptions(ctx context.Context, query *models.Profile, opts recommend.RankOptions) ([]recommend.Recommendation, error)
	Explain(ctx context.Context, query *models.Profile, institutionID string) (recommend.Explanation, error)
	Status() recommend.Status
	Ready() bool
	StartReload(ctx context.Context, done func(error)) error
}

// Pinger checks a backing store. *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	// RequestTimeout bounds rank and explain. Default: 10s.
	RequestTimeout time.Duration

	// ReindexTimeout bounds an API-triggered rebuild. Default: 10m.
	ReindexTimeout time.Duration

	// PingTimeout bounds the readiness database check. Default: 2s.
	PingTimeout time.Duration

	// RateLimitRequests caps /api/v1 requests per client IP per
	// RateLimitWindow. 0 disables the limiter.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func (c HandlerConfig) withDefaults() HandlerConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ReindexTimeout <= 0 {
		c.ReindexTimeout = 10 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		c.RateLimitWindow = time.Minute
	}
	return c
}

// Handler serves the ops endpoints.
type Handler struct {
	engine    Engine
	db        Pinger
	cfg       HandlerConfig
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates the ops handler. db may be nil, in which case readiness
// only reflects the engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine Engine, db Pinger, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		db:        db,
		cfg:       cfg.withDefaults(),
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// Healthz reports liveness. It never touches the engine or the database.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// Readyz reports 200 once an index generation is published and the database
// answers a ping.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.engine.Ready() {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "indexes not built yet")
		return
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.PingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logger := logging.Ctx(r.Context(), h.logger)
			logger.Warn().Err(err).Msg("Readiness database ping failed")
			rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unavailable")
			return
		}
	}
	rw.Success(map[string]interface{}{
		"status":     "ready",
		"generation": h.engine.Status().Generation,
	})
}

// Status returns the engine status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Status())
}

// Reindex starts a rebuild in the background and returns 202. A rebuild that
// is already running yields 409.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	logger := logging.Ctx(r.Context(), h.logger)

	// The rebuild outlives the request but keeps its request and correlation IDs.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.ReindexTimeout)
	started := time.Now()
	err := h.engine.StartReload(ctx, func(buildErr error) {
		defer cancel()
		if buildErr != nil {
			logger.Warn().Err(buildErr).Dur("duration", time.Since(started)).Msg("API-triggered reindex failed")
			return
		}
		logger.Info().Dur("duration", time.Since(started)).Msg("API-triggered reindex complete")
	})
	if err != nil {
		cancel()
		switch {
		case errors.Is(err, recommend.ErrBuildInProgress):
			rw.Error(http.StatusConflict, ErrCodeConflict, "an index build is already running")
		case errors.Is(err, recommend.ErrNoRepository):
			rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "no repository configured")
		default:
			rw.InternalError("Failed to start reindex", err)
		}
		return
	}

	logger.Info().Msg("Reindex started")
	rw.Accepted(ReindexResponse{Accepted: true, Generation: h.engine.Status().Generation})
}

// Rank ranks institutions for the posted profile.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RankRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "invalid rank request", details)
		return
	}
	opts, err := req.options()
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	recs, err := h.engine.RankWithOptions(ctx, &req.Profile, opts)
	if err != nil {
		h.engineError(ctx, rw, err, "Failed to rank institutions")
		return
	}
	rw.Success(RankResponse{Recommendations: recs, Count: len(recs)})
}

// Explain explains one institution for the posted profile.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ExplainRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "invalid explain request", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	exp, err := h.engine.Explain(ctx, &req.Profile, req.InstitutionID)
	if err != nil {
		h.engineError(ctx, rw, err, "Failed to explain institution")
		return
	}
	rw.Success(exp)
}

// engineError maps engine errors to responses.
func (h *Handler) engineError(ctx context.Context, rw *ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, recommend.ErrInvalidWeights):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
	case errors.Is(err, recommend.ErrUnknownInstitution):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		rw.Error(http.StatusServiceUnavailable, ErrCodeTimeout, "request timed out")
	default:
		rw.InternalError(message, err)
	}
}

// NotFound is the JSON 404 handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "no route for "+r.URL.Path)
}

// TooManyRequests is the JSON 429 handler used by the rate limiter.
func (h *Handler) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded, retry later")
}

// MethodNotAllowed is the JSON 405 handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
}
