// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package middleware provides HTTP middleware shared by every route.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge
  - AccessLog: one structured log line per request

All three take and return http.Handler so they compose with chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

PrometheusMetrics labels requests with the chi route pattern, not the raw
path, so /book/1 and /book/2 share one series.
*/
package middleware
