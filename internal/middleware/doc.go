// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package middleware provides the HTTP middleware used by the ops server.

Key Components:

  - RequestID: assigns or propagates X-Request-ID and stores it, together with
    a correlation ID, in the request context for logging.Ctx
  - PrometheusMetrics: records campusmatch_http_requests_total and
    campusmatch_http_request_duration_seconds per chi route pattern

Both use the http.HandlerFunc signature. The api package adapts them to chi's
func(http.Handler) http.Handler with a small wrapper:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

PrometheusMetrics reads the route pattern after the handler returns, so it must
run inside a chi router. Requests that match no route are labelled
"unmatched".
*/
package middleware
