// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"time"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/models"
)

// EventKind names an attendance lifecycle transition.
type EventKind string

const (
	EventFinalized EventKind = "attendance.finalized"
	EventImported  EventKind = "attendance.imported"
	EventEdited    EventKind = "attendance.edited"
	EventDeleted   EventKind = "attendance.deleted"
)

// Event is published after a transition commits.
type Event struct {
	Kind       EventKind `json:"kind"`
	RecordID   string    `json:"recordId"`
	ClassID    string    `json:"classId"`
	Day        string    `json:"day"`
	Present    int       `json:"present"`
	Absent     int       `json:"absent"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher receives lifecycle events. Publishing is best effort: a failure
// is logged and never undoes the committed transition.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func (s *Service) publish(ctx context.Context, kind EventKind, rec *models.AttendanceRecord) {
	if s.publisher == nil || rec == nil {
		return
	}
	event := Event{
		Kind:       kind,
		RecordID:   rec.ID,
		ClassID:    rec.ClassID,
		Day:        rec.Day,
		Present:    len(rec.PresentStudents),
		Absent:     len(rec.AbsentStudents),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(kind)).Str("record_id", rec.ID).
			Msg("Failed to publish attendance event")
	}
}
