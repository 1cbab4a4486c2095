// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package metrics exposes the Prometheus instrumentation for the relay hub,
// recognition client, attendance state machine and HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay Metrics
	RelayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Current number of open relay channels",
		},
	)

	RelayPairings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_pairings",
			Help: "Current number of registered pairings",
		},
	)

	RelayMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Total number of inbound relay messages by parsed type",
		},
		[]string{"type"}, // register_session, image_frame, invalid
	)

	RelayFramesForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_forwarded_total",
			Help: "Total number of frames forwarded to operator channels",
		},
		[]string{"path"}, // channel, upload
	)

	RelayFramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total number of frames dropped before reaching an operator",
		},
		[]string{"reason"}, // no_pairing, buffer_full, malformed
	)

	RelayRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_registrations_total",
			Help: "Total number of pairing registration attempts",
		},
		[]string{"result"}, // ok, conflict, invalid
	)

	RelayRegistrationTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_registration_timeouts_total",
			Help: "Channels closed because they never registered",
		},
	)

	// Recognition Metrics
	RecognitionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_calls_total",
			Help: "Total number of upstream recognition calls",
		},
		[]string{"endpoint", "result"}, // result: ok, error, rejected
	)

	RecognitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recognition_call_duration_seconds",
			Help:    "Upstream recognition call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"endpoint"},
	)

	RecognitionSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recognition_frames_skipped_total",
			Help: "Frames not sent for recognition because a call was already in flight for the pairing",
		},
	)

	RecognitionMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recognition_new_matches_total",
			Help: "Students newly added to a present set",
		},
	)

	RosterFaceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_roster_cache_lookups_total",
			Help: "Roster face lookups served from or missing the cache",
		},
		[]string{"result"}, // hit, miss
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Attendance Metrics
	AttendanceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_operations_total",
			Help: "Attendance state machine transitions by outcome",
		},
		[]string{"operation", "result"}, // result: ok, conflict, forbidden, not_found, error
	)

	AttendanceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_events_total",
			Help: "Attendance lifecycle events observed by the audit consumer",
		},
		[]string{"kind"},
	)

	ExportRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_export_rows",
			Help:    "Roster rows per attendance export",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
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
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecognitionCall records one upstream call and its latency.
func RecordRecognitionCall(endpoint, result string, duration time.Duration) {
	RecognitionCalls.WithLabelValues(endpoint, result).Inc()
	RecognitionDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAttendanceOperation records a state machine transition outcome.
func RecordAttendanceOperation(operation, result string) {
	AttendanceOperations.WithLabelValues(operation, result).Inc()
}

// RecordFrameDropped counts a frame that reached no operator.
func RecordFrameDropped(reason string) {
	RelayFramesDropped.WithLabelValues(reason).Inc()
}
