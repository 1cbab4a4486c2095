// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test", "200"))
	RecordAPIRequest("GET", "/api/v1/test", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordRecognitionCall(t *testing.T) {
	c := RecognitionCalls.WithLabelValues("recognize_faces", "error")
	before := testutil.ToFloat64(c)
	RecordRecognitionCall("recognize_faces", "error", time.Second)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("recognition_calls_total delta = %v, want 1", got)
	}
}

func TestRecordAttendanceAndDrops(t *testing.T) {
	op := AttendanceOperations.WithLabelValues("finalize", "conflict")
	drop := RelayFramesDropped.WithLabelValues("no_pairing")
	opBefore, dropBefore := testutil.ToFloat64(op), testutil.ToFloat64(drop)

	RecordAttendanceOperation("finalize", "conflict")
	RecordFrameDropped("no_pairing")
	RecordFrameDropped("no_pairing")

	if got := testutil.ToFloat64(op) - opBefore; got != 1 {
		t.Errorf("attendance op delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(drop) - dropBefore; got != 2 {
		t.Errorf("dropped frames delta = %v, want 2", got)
	}
}
