// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package main is the entry point for the CampusMatch server.
//
// The server keeps the recommendation indexes fresh from the DuckDB reference
// database and exposes an ops HTTP surface for health, metrics, status,
// rebuilds and ad hoc rank/explain requests.
//
// # Startup
//
//  1. Configuration: defaults, config.yaml (or CONFIG_PATH), environment (koanf v2)
//  2. Logging: zerolog configured from the logging section
//  3. Components: DuckDB, embedding provider and cache, optional badger
//     vector store, recommendation engine (internal/app)
//  4. Supervisor tree: reindex service and vector store GC in the data layer,
//     ops HTTP server in the api layer
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the
// services, the HTTP server drains within server.shutdown_timeout, then the
// vector store and database are closed.
//
// # Example Usage
//
//	export DUCKDB_PATH=/var/lib/campusmatch/campusmatch.duckdb
//	export EMBEDDING_STORE_PATH=/var/lib/campusmatch/vectors
//	export REINDEX_INTERVAL=6h
//	./campusmatch-server
//
// With an OpenAI-compatible embeddings endpoint:
//
//	export EMBEDDING_PROVIDER=http
//	export EMBEDDING_BASE_URL=http://embeddings.internal:8000/v1
//	export EMBEDDING_MODEL=bge-small-en
//	export EMBEDDING_DIMENSION=384
//	./campusmatch-server
package main
