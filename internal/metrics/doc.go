// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package metrics defines the Prometheus instrumentation for CampusMatch.

Metrics are package-level promauto collectors registered on the default
registry and exposed by the ops server at /metrics.

Ranking:
  - campusmatch_rank_duration_seconds, campusmatch_rank_requests_total{outcome}
  - campusmatch_candidates_retrieved_total{source}
  - campusmatch_ranker_dropped_candidates_total{reason}

Embeddings:
  - campusmatch_embedding_cache_hits_total, campusmatch_embedding_cache_misses_total
  - campusmatch_embedding_zero_vector_total{reason}
  - campusmatch_embedding_provider_duration_seconds{provider,status}

Index and model:
  - campusmatch_index_vectors, campusmatch_index_generation
  - campusmatch_index_builds_total{status}, campusmatch_model_train_rmse

Repository, ops API and circuit breakers follow the same naming scheme.
*/
package metrics
