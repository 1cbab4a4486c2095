// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package api provides the HTTP layer of Rollcall.

Two audiences use it. Operators (teachers) authenticate with a bearer token
and open pairings, run live recognition, finalize and maintain attendance,
manage classes and export reports. Devices (phones) hold only a session id
taken from a QR code; they use the channel at /api/v1/ws and the single-shot
upload at /api/v1/capture/upload/{sessionId}, both unauthenticated.

Middleware Stack:

	RequestIDWithLogging -> RealIP -> Recoverer -> CORS       (global)
	RateLimit -> APISecurityHeaders -> PrometheusMetrics ->
	    Authenticate -> Authorize                             (operator routes)
	RateLimitUpload -> APISecurityHeaders -> PrometheusMetrics (device upload)

Responses:

Every JSON response uses the envelope

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

Guard failures carry their reason verbatim in error.message. Error kinds map
to statuses as follows: not found 404, conflict 409, forbidden 403,
validation 400, upstream 502, a full operator buffer 503. A duplicate
finalize is the one conflict answered with 400, with code CONFLICT.

Export responses are files, not envelopes, and carry
Content-Disposition: attachment; filename=<code>_attendance_<start>_to_<end>.<ext>.
*/
package api
