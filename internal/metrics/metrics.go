// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WeChat Metrics
	WeChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wechat_messages_total",
			Help: "Total number of inbound WeChat messages",
		},
		[]string{"msg_type"}, // "text", "event", "image", ...
	)

	WeChatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wechat_replies_total",
			Help: "Total number of gateway replies",
		},
		[]string{"outcome"}, // "text", "empty", "duplicate", "rejected", "malformed"
	)

	WeChatPushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wechat_push_total",
			Help: "Total number of customer-service message pushes",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	WeChatTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wechat_token_refreshes_total",
			Help: "Total number of access token refreshes",
		},
		[]string{"outcome"},
	)

	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation rounds",
		},
		[]string{"path"}, // "personalised", "fallback"
	)

	RecommendationBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_batch_size",
			Help:    "Number of books returned per recommendation round",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 10},
		},
	)

	// Library loan-history (OPAC) Metrics
	OPACRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opac_requests_total",
			Help: "Total number of loan-history page requests",
		},
		[]string{"outcome"}, // "success", "http_error", "api_error", "transport_error"
	)

	OPACRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opac_request_duration_seconds",
			Help:    "Loan-history page request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	OPACCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opac_cache_lookups_total",
			Help: "Loan-history cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Database snapshots by outcome",
		},
		[]string{"outcome"},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp_seconds",
			Help: "Unix time of the last successful snapshot",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Scheduler Metrics
	ScheduleRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_runs_total",
			Help: "Total number of scheduled recommendation runs",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	ScheduleRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_run_duration_seconds",
			Help:    "Duration of scheduled recommendation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ScheduleReadersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_readers_total",
			Help: "Readers processed by scheduled runs, by outcome",
		},
		[]string{"outcome"}, // "pushed", "empty", "failed"
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of live web sessions",
		},
	)
)

// RecordDBQuery records a database query duration.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

func RecordWeChatMessage(msgType string) {
	if msgType == "" {
		msgType = "unknown"
	}
	WeChatMessagesTotal.WithLabelValues(msgType).Inc()
}

func RecordWeChatReply(outcome string) {
	WeChatRepliesTotal.WithLabelValues(outcome).Inc()
}

func RecordOPACCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	OPACCacheLookups.WithLabelValues(result).Inc()
}

func RecordBackup(err error, at time.Time) {
	BackupsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	if err == nil {
		BackupLastSuccess.Set(float64(at.Unix()))
	}
}

func RecordWeChatPush(err error) {
	WeChatPushTotal.WithLabelValues(outcomeLabel(err)).Inc()
}

func RecordTokenRefresh(err error) {
	WeChatTokenRefreshes.WithLabelValues(outcomeLabel(err)).Inc()
}

// RecordRecommendation records one round. personalised is false when the
// round fell back to random picks.
func RecordRecommendation(personalised bool, size int) {
	path := "fallback"
	if personalised {
		path = "personalised"
	}
	RecommendationsTotal.WithLabelValues(path).Inc()
	RecommendationBatchSize.Observe(float64(size))
}

func RecordOPACRequest(outcome string, duration time.Duration) {
	OPACRequestsTotal.WithLabelValues(outcome).Inc()
	OPACRequestDuration.Observe(duration.Seconds())
}

// RecordScheduleRun records the outcome and duration of a scheduled run.
func RecordScheduleRun(duration time.Duration, err error) {
	ScheduleRunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	ScheduleRunDuration.Observe(duration.Seconds())
}

// RecordScheduleReader records how one reader fared within a scheduled run.
func RecordScheduleReader(outcome string) {
	ScheduleReadersTotal.WithLabelValues(outcome).Inc()
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	SessionsActive.Set(float64(n))
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
