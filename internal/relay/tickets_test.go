// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/rollcall/internal/apperr"
)

func newTestTicketStore(t *testing.T, ttl time.Duration) *TicketStore {
	t.Helper()
	s, err := NewTicketStore(ttl)
	if err != nil {
		t.Fatalf("NewTicketStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTicketIssueGet(t *testing.T) {
	t.Parallel()

	s := newTestTicketStore(t, time.Minute)
	ctx := context.Background()

	issued, err := s.Issue(ctx, RoleLive, "c1", "teacher-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !ValidSessionID(issued.SessionID) {
		t.Fatalf("issued id %q is not a valid session id", issued.SessionID)
	}

	for i := 0; i < 2; i++ {
		got, err := s.Get(ctx, issued.SessionID)
		if err != nil {
			t.Fatalf("Get #%d: %v", i+1, err)
		}
		if got.Role != RoleLive || got.ClassID != "c1" || got.IssuedBy != "teacher-1" {
			t.Errorf("Get #%d = %+v", i+1, got)
		}
	}

	if _, err := s.Get(ctx, "unknown"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want not found", err)
	}
}

func TestTicketExpires(t *testing.T) {
	t.Parallel()

	s := newTestTicketStore(t, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	issued, err := s.Issue(context.Background(), RoleCapture, "", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := s.Get(context.Background(), issued.SessionID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after expiry error = %v, want not found", err)
	}
}

func TestTicketHoldAndRelease(t *testing.T) {
	t.Parallel()

	s := newTestTicketStore(t, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	issued, err := s.Issue(ctx, RoleCapture, "", "student-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := s.Hold(ctx, issued.SessionID); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	// A held ticket survives past its original expiry.
	s.now = func() time.Time { return now.Add(time.Hour) }
	got, err := s.Get(ctx, issued.SessionID)
	if err != nil {
		t.Fatalf("Get while held: %v", err)
	}
	if got.Role != RoleCapture || !got.ExpiresAt.IsZero() {
		t.Errorf("held ticket = %+v", got)
	}

	// Release restarts the TTL from the release time.
	if err := s.Release(ctx, issued.SessionID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	s.now = func() time.Time { return now.Add(time.Hour + 30*time.Second) }
	if _, err := s.Get(ctx, issued.SessionID); err != nil {
		t.Errorf("Get within TTL after release: %v", err)
	}
	s.now = func() time.Time { return now.Add(time.Hour + 2*time.Minute) }
	if _, err := s.Get(ctx, issued.SessionID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after released TTL error = %v, want not found", err)
	}

	if err := s.Hold(ctx, "unknown"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Hold(unknown) error = %v, want not found", err)
	}
}

func TestTicketPutRejectsEmptyID(t *testing.T) {
	t.Parallel()

	s := newTestTicketStore(t, time.Minute)
	if err := s.Put(context.Background(), &Ticket{}); err == nil {
		t.Error("expected error for empty session id")
	}
}
