// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package metrics exposes the Prometheus instrumentation for the
// server: database query timing, HTTP request metrics, notification
// delivery counts, SMS gateway calls, scheduled job runs, and
// WebSocket connection gauges.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Notification delivery metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications delivered, by channel",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of notification deliveries that failed permanently",
		},
		[]string{"channel"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Current number of notifications waiting for delivery",
		},
	)

	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Total number of notification rule evaluations, by outcome",
		},
		[]string{"outcome"}, // "fired", "skipped", "error"
	)

	// SMS gateway metrics
	SMSRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_gateway_requests_total",
			Help: "Total number of SMS gateway HTTP requests, by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	SMSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_messages_sent_total",
			Help: "Total number of SMS messages accepted by the gateway",
		},
	)

	SMSBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sms_breaker_open",
			Help: "1 when the SMS gateway circuit breaker is open, 0 otherwise",
		},
	)

	// Scheduler metrics
	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Total number of scheduled job executions, by job and result",
		},
		[]string{"job", "result"},
	)

	ScheduledJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduled_job_duration_seconds",
			Help:    "Duration of scheduled job executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of messages pushed to WebSocket clients",
		},
	)
)

// RecordDBQuery records a query's duration and, when err is non-nil,
// increments the error counter.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordNotification records one delivery attempt outcome.
func RecordNotification(channel string, failed bool) {
	if failed {
		NotificationsFailed.WithLabelValues(channel).Inc()
		return
	}
	NotificationsSent.WithLabelValues(channel).Inc()
}

// RecordSMSRequest records one gateway HTTP call.
func RecordSMSRequest(endpoint, result string) {
	SMSRequests.WithLabelValues(endpoint, result).Inc()
}

// RecordJobRun records a scheduled job execution.
func RecordJobRun(job string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ScheduledJobRuns.WithLabelValues(job, result).Inc()
	ScheduledJobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// SetBreakerOpen reflects the SMS circuit breaker state.
func SetBreakerOpen(open bool) {
	if open {
		SMSBreakerState.Set(1)
		return
	}
	SMSBreakerState.Set(0)
}
