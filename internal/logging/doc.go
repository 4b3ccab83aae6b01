// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package logging provides the process-wide zerolog logger for CampusMatch.
//
// The global logger is configured once from main with Init. Components do not
// log through the global helpers on hot paths; they receive a zerolog.Logger in
// their constructor and derive a child tagged with their component name:
//
//	logger := logging.WithComponent("ranker")
//	ranker := recommend.NewRanker(cfg, scorer, retriever, logger)
//
// Request-scoped fields (correlation_id, request_id) travel in the context and
// are attached with Ctx:
//
//	ctx = logging.EnsureCorrelationID(ctx)
//	l := logging.Ctx(ctx, logger)
//	l.Warn().Str("institution_id", id).Msg("Dropping candidate for unknown institution")
//
// Libraries that only speak log/slog (the suture supervisor hook) are bridged
// with NewSlogLogger.
package logging
