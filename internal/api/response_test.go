// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/logging"
)

func TestResponseWriter_Success(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r = r.WithContext(logging.ContextWithRequestID(r.Context(), "req-1"))

	NewResponseWriter(w, r).Success(map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Success || response.Error != nil {
		t.Errorf("response = %+v", response)
	}
	if response.Meta == nil || response.Meta.Timestamp.IsZero() {
		t.Fatal("Expected Meta with a timestamp")
	}
	if response.Meta.RequestID != "req-1" {
		t.Errorf("request_id = %q, want req-1", response.Meta.RequestID)
	}
	if response.Meta.Count != nil {
		t.Error("Expected no count on a single resource")
	}
}

func TestResponseWriter_List(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	NewResponseWriter(w, r).List([]string{"a", "b"}, 2)

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Meta == nil || response.Meta.Count == nil || *response.Meta.Count != 2 {
		t.Errorf("meta = %+v, want count 2", response.Meta)
	}
}

func TestResponseWriter_Message(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", nil)
	NewResponseWriter(w, r).Message("done")

	var body struct {
		Data MessageData `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body.Data.Message != "done" {
		t.Errorf("msg = %q, want done", body.Data.Message)
	}
}

func TestResponseWriter_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		write      func(*ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"created", func(rw *ResponseWriter) { rw.Created(struct{}{}) }, http.StatusCreated, ""},
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("bad") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("gone") }, http.StatusNotFound, ErrCodeNotFound},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("oops") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("invalid", []string{"x"}) }, http.StatusBadRequest, ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.write(NewResponseWriter(w, r))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var response APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if tt.wantCode == "" {
				if !response.Success {
					t.Error("Expected success")
				}
				return
			}
			if response.Success || response.Error == nil || response.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", response.Error, tt.wantCode)
			}
		})
	}
}
