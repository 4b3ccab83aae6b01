// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ranking Metrics
	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusmatch_rank_duration_seconds",
			Help:    "Duration of rank requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	RankRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_rank_requests_total",
			Help: "Total rank requests by outcome",
		},
		[]string{"outcome"}, // "ok", "empty", "invalid", "cached"
	)

	RankResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusmatch_rank_results",
			Help:    "Number of recommendations returned per rank request",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
		},
	)

	CandidatesRetrieved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_candidates_retrieved_total",
			Help: "Candidates produced by the retriever, by retrieval path",
		},
		[]string{"source"}, // "index", "fallback"
	)

	DroppedCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_ranker_dropped_candidates_total",
			Help: "Candidates dropped during ranking",
		},
		[]string{"reason"}, // "unknown_institution"
	)

	// Embedding Metrics
	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusmatch_embedding_cache_hits_total",
			Help: "Embedding lookups served from memory or the persistent store",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusmatch_embedding_cache_misses_total",
			Help: "Embedding lookups that required the provider",
		},
	)

	EmbeddingCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmatch_embedding_cache_entries",
			Help: "Distinct normalized texts held in the embedding cache",
		},
	)

	EmbeddingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_embedding_zero_vector_total",
			Help: "Texts that degraded to the zero vector, by reason",
		},
		[]string{"reason"}, // "empty", "provider_error", "invalid_vector", "timeout"
	)

	EmbeddingBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmatch_embedding_provider_duration_seconds",
			Help:    "Duration of embedding provider calls",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)

	// Index Metrics
	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmatch_index_vectors",
			Help: "Vectors in the active nearest-neighbor index",
		},
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusmatch_index_build_duration_seconds",
			Help:    "Duration of full index builds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	IndexBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_index_builds_total",
			Help: "Index builds by status",
		},
		[]string{"status"}, // "success", "failure", "skipped"
	)

	IndexGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmatch_index_generation",
			Help: "Generation counter of the active index state",
		},
	)

	// Model Metrics
	ModelTrainRMSE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmatch_model_train_rmse",
			Help: "Training RMSE of the latent-factor model after the last fit",
		},
	)

	ModelRatings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmatch_model_ratings",
			Help: "Outcome records used by the last latent-factor fit",
		},
	)

	// Repository Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmatch_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB repository queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_duckdb_query_errors_total",
			Help: "DuckDB repository query errors",
		},
		[]string{"operation", "table"},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_http_requests_total",
			Help: "Ops HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmatch_http_request_duration_seconds",
			Help:    "Ops HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campusmatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmatch_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordRank records one rank request.
func RecordRank(duration time.Duration, results int, outcome string) {
	RankDuration.Observe(duration.Seconds())
	RankResults.Observe(float64(results))
	RankRequests.WithLabelValues(outcome).Inc()
}

// RecordIndexBuild records one build attempt.
func RecordIndexBuild(duration time.Duration, vectors int, err error) {
	if err != nil {
		IndexBuilds.WithLabelValues("failure").Inc()
		return
	}
	IndexBuildDuration.Observe(duration.Seconds())
	IndexBuilds.WithLabelValues("success").Inc()
	IndexSize.Set(float64(vectors))
	IndexGeneration.Inc()
}

// RecordProviderCall records one embedding provider call.
func RecordProviderCall(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EmbeddingBatchDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordDBQuery records a repository query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an ops HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
