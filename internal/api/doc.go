// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package api provides the ops HTTP surface of the CampusMatch server.

It is an operator interface, not a public API: there is no authentication,
CORS or rate limiting, and it is expected to listen on an internal address.

Endpoints:

	GET  /healthz           process is up
	GET  /readyz            indexes are built and the database answers
	GET  /metrics           Prometheus exposition (promhttp)
	GET  /api/v1/status     recommend.Status of the current index generation
	POST /api/v1/reindex    start an asynchronous rebuild (202, or 409 while one runs)
	POST /api/v1/rank       rank institutions for a JSON profile
	POST /api/v1/explain    explain one institution for a JSON profile

Every response except /metrics uses the APIResponse envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Errors carry a machine-readable code (VALIDATION_FAILED, NOT_FOUND, CONFLICT,
SERVICE_UNAVAILABLE, ...) and, for validation failures, one detail entry per
rejected field.

Request bodies are decoded with goccy/go-json and validated with the shared
validator from the validation package. Every request passes through
middleware.RequestID and middleware.PrometheusMetrics, and /api/v1 responses
are gzip-compressed when the client accepts it.
*/
package api
