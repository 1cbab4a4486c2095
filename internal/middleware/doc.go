// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package middleware provides HTTP instrumentation middleware.

PrometheusMetrics records request counts, latencies and in-flight requests.
Requests are labelled with the chi route pattern rather than the raw path, so
ids in paths such as /api/v1/attendance/{id} do not create a series per record:

	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/attendance/{id}", h.GetAttendance)
	})

The channel upgrade route is not instrumented; a hijacked connection has no
meaningful status or duration.
*/
package middleware
