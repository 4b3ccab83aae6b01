// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package recommend ranks institutions for an aspiring student.
//
// # Architecture
//
// Three signals are combined:
//
//   - Structured similarity: eight category scores (academic, social,
//     financial, career, geographic, facilities, reputation, personal fit)
//     between the query profile and each candidate subject (Scorer)
//   - Dense similarity: cosine similarity of profile embeddings, used to
//     retrieve candidates from the vector index (Retriever)
//   - Collaborative filtering: the latent-factor model's predicted
//     satisfaction of the candidate with their institution
//
// Candidates are grouped by institution. The best peers per institution are
// averaged into a Recommendation, and the Explainer turns its category scores
// into human-readable strengths and considerations.
//
// # Design Principles
//
//   - Deterministic: identical query and snapshot produce identical output
//   - Graceful: missing data degrades to neutral defaults, never to errors
//   - Consistent: each request reads one immutable index state; rebuilds
//     swap a new state in atomically
//   - Observable: Prometheus metrics and structured logs with correlation ids
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), cache, repo, logger)
//	if err := engine.Reload(ctx); err != nil { ... }
//
//	recs, err := engine.Rank(ctx, query, 5, nil)
//	why, err := engine.Explain(ctx, query, recs[0].InstitutionID)
//
// # Thread Safety
//
// Engine is safe for concurrent use. Rank and Explain never block on a
// rebuild; only one rebuild runs at a time.
package recommend
