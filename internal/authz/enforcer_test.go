// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/rollcall/internal/auth"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		role, path, method string
		want               bool
	}{
		{"teacher", "/api/v1/attendance/finalize", "POST", true},
		{"teacher", "/api/v1/attendance/r1", "DELETE", true},
		{"admin", "/api/v1/classes", "POST", true},
		{"student", "/api/v1/capture/session", "GET", true},
		{"student", "/api/v1/students/s1/face", "POST", true},
		{"student", "/api/v1/attendance/student/c1", "GET", true},
		{"student", "/api/v1/attendance/student/c1/report", "GET", true},
		{"student", "/api/v1/attendance/finalize", "POST", false},
		{"student", "/api/v1/attendance/export/c1", "GET", false},
		{"student", "/api/v1/capture/live-session", "GET", false},
		{"", "/api/v1/classes", "POST", false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.path, tt.method)
		if err != nil {
			t.Fatalf("Enforce: %v", err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tt.role, tt.path, tt.method, got, tt.want)
		}
	}
}

func TestPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(path, []byte("p, student, /api/v1/classes, POST\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewEnforcer(path)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	if ok, _ := e.Enforce("student", "/api/v1/classes", "POST"); !ok {
		t.Error("file policy not applied")
	}
	if ok, _ := e.Enforce("teacher", "/api/v1/classes", "POST"); ok {
		t.Error("embedded policy should not be loaded with a policy file")
	}

	if _, err := NewEnforcer(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing policy file")
	}
}

func TestAuthorizeMiddleware(t *testing.T) {
	mw := NewMiddleware(newTestEnforcer(t))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := mw.Authorize(ok)

	tests := []struct {
		name    string
		subject *auth.AuthSubject
		method  string
		path    string
		want    int
	}{
		{"teacher allowed", &auth.AuthSubject{ID: "t1", Role: auth.RoleTeacher}, http.MethodPost, "/api/v1/attendance/finalize", http.StatusNoContent},
		{"student denied", &auth.AuthSubject{ID: "s1", Role: auth.RoleStudent}, http.MethodPost, "/api/v1/attendance/finalize", http.StatusForbidden},
		{"no subject", nil, http.MethodGet, "/api/v1/classes", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.subject != nil {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
