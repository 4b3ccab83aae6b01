// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package config provides layered configuration loading for CampusMatch.

Configuration is assembled with koanf from three layers, later layers
overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, then config.yaml, config.yml,
    /etc/campusmatch/config.yaml
 3. Environment variables, through an explicit mapping table

Only mapped environment variables are read, so unrelated variables in the
process environment never leak into the configuration.

# Sections

  - logging: level, format, caller
  - database: DuckDB reference repository
  - embedding: provider selection, HTTP endpoint, cache batching, vector store, breaker
  - index: HNSW graph parameters
  - model: latent factor training parameters
  - retriever: candidate retrieval limits and pool strategy
  - ranker: peers, top n, weights, blend, response cache
  - explainer: strength and consideration thresholds
  - reindex: startup build, periodic reload, build timeout
  - server: ops HTTP server

# Example

	cfg, err := config.Load("")
	if err != nil {
	    log.Fatal(err)
	}
	engine, err := recommend.NewEngine(cfg.Engine(), cache, repo, logger)

# Environment Variables

	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
	DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS, DUCKDB_QUERY_TIMEOUT
	EMBEDDING_PROVIDER, EMBEDDING_BASE_URL, EMBEDDING_API_KEY, EMBEDDING_MODEL,
	EMBEDDING_DIMENSION, EMBEDDING_TIMEOUT, EMBEDDING_RATE_LIMIT, EMBEDDING_BURST,
	EMBEDDING_BATCH_SIZE, EMBEDDING_QUERY_TIMEOUT, EMBEDDING_STORE_PATH,
	EMBEDDING_STORE_GC_INTERVAL, EMBEDDING_BREAKER_ENABLED
	INDEX_M, INDEX_EF_CONSTRUCTION, INDEX_EF_SEARCH, INDEX_MAX_K
	MODEL_FACTORS, MODEL_EPOCHS, MODEL_LEARNING_RATE, MODEL_REGULARIZATION
	RETRIEVER_MAX_CANDIDATES, RETRIEVER_POOL_STRATEGY
	RANKER_PEERS_PER_INSTITUTION, RANKER_DEFAULT_TOP_N, RANKER_CONCURRENCY,
	RANK_CACHE_SIZE, RANK_CACHE_TTL
	EXPLAINER_STRENGTH_THRESHOLD, EXPLAINER_CONSIDERATION_THRESHOLD
	REINDEX_ON_STARTUP, REINDEX_INTERVAL, REINDEX_TIMEOUT
	HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
*/
package config
