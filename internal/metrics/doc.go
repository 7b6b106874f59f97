// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and are
exposed at /metrics in the Prometheus text format:

	curl http://localhost/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: requests by method, route and status code (counter)
  - api_request_duration_seconds: request latency by method and route (histogram)
  - api_active_requests: in-flight requests (gauge)

Database Metrics:
  - duckdb_query_duration_seconds: query latency by operation (histogram)

WeChat Metrics:
  - wechat_messages_total: inbound messages by message type (counter)
  - wechat_replies_total: gateway replies by outcome (counter)
  - wechat_push_total: customer-service pushes by outcome (counter)

Recommendation Metrics:
  - recommendations_total: rounds by path, personalised or fallback (counter)
  - recommendation_batch_size: books per round (histogram)

Library Loan-History Metrics:
  - opac_requests_total: loan-history page requests by outcome (counter)
  - opac_request_duration_seconds: loan-history page latency (histogram)
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_requests_total: breaker results (counter)
  - circuit_breaker_state_transitions_total: breaker transitions (counter)

Scheduler Metrics:
  - schedule_runs_total: scheduled runs by outcome (counter)
  - schedule_run_duration_seconds: scheduled run duration (histogram)
  - schedule_readers_total: readers per run by outcome (counter)

Session Metrics:
  - sessions_active: live web sessions, refreshed by the cleanup service (gauge)

# Usage

	start := time.Now()
	// ... do work ...
	metrics.RecordDBQuery("list_books", time.Since(start))
*/
package metrics
