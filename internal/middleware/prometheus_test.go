// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/rollcall/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		method  string
		status  int
	}{
		{"ok", "/metrics-test/ok/{id}", "/metrics-test/ok/abc", http.MethodGet, http.StatusOK},
		{"created", "/metrics-test/created", "/metrics-test/created", http.MethodPost, http.StatusCreated},
		{"forbidden", "/metrics-test/forbidden/{id}", "/metrics-test/forbidden/r1", http.MethodPut, http.StatusForbidden},
		{"server error", "/metrics-test/fail", "/metrics-test/fail", http.MethodDelete, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			r.Use(PrometheusMetrics)
			r.MethodFunc(tt.method, tt.pattern, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			counter := metrics.APIRequestsTotal.WithLabelValues(tt.method, tt.pattern, strconv.Itoa(tt.status))
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("counter for pattern %s grew by %v, want 1", tt.pattern, got)
			}
		})
	}
}

func TestPrometheusMetrics_DefaultsTo200(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/metrics-test/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/implicit", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/implicit", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("implicit 200 not recorded, delta = %v", got)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := RoutePattern(req); got != unmatchedRoute {
		t.Errorf("RoutePattern() = %q, want %q", got, unmatchedRoute)
	}
}

func TestMetricsResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusInternalServerError)

	if w.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", w.statusCode)
	}
	if w.Unwrap() != rec {
		t.Error("Unwrap should return the underlying writer")
	}
}
