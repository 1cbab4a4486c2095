// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package attendance implements the finalization and edit state machine that
// turns a live session's present set into a durable attendance record.
//
// Invariants enforced here:
//   - at most one record per class per calendar day (also enforced by the store)
//   - present and absent partition the class roster at finalize or edit time
//   - records are mutable only while fewer than EditWindowDays calendar days old
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

// Guard reasons surfaced verbatim to callers.
const (
	ReasonDuplicateToday = "Attendance has already been taken for this class today."
	ReasonDuplicateDay   = "Attendance has already been taken for this class on that day."
	ReasonTooOldToEdit   = "This record is too old to be edited."
	ReasonTooOldToDelete = "This record is too old to be deleted."
)

// Store is the persistence the state machine needs.
type Store interface {
	GetClass(ctx context.Context, id string) (*models.Class, error)
	Roster(ctx context.Context, classID string) ([]models.Student, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	InsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error
	FindAttendanceForDay(ctx context.Context, classID, day string) (*models.AttendanceRecord, error)
	GetAttendance(ctx context.Context, id string) (*models.AttendanceRecord, error)
	UpdateAttendancePresence(ctx context.Context, id string, presentIDs, absentIDs []string) (*models.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, id string) error
	ListAttendanceByClass(ctx context.Context, classID string) ([]models.AttendanceRecord, error)
}

// Service is the attendance state machine.
type Service struct {
	store     Store
	loc       *time.Location
	window    int
	now       func() time.Time
	publisher Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates the state machine over store.
func NewService(store Store, cfg config.AttendanceConfig, opts ...Option) *Service {
	window := cfg.EditWindowDays
	if window <= 0 {
		window = 3
	}
	s := &Service{
		store:  store,
		loc:    cfg.Location(),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the timezone used for day truncation.
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the current calendar day key.
func (s *Service) Today() string { return DayKey(s.now(), s.loc) }

// Editable reports whether rec is still inside the edit window.
// A record dated exactly EditWindowDays days ago is not editable.
func (s *Service) Editable(rec *models.AttendanceRecord) bool {
	age, err := daysBetween(rec.Day, s.Today())
	if err != nil {
		return false
	}
	return age < s.window
}

// StateOf places rec in the lifecycle. A nil record is a Draft.
func (s *Service) StateOf(rec *models.AttendanceRecord) State {
	if rec == nil {
		return Draft
	}
	if s.Editable(rec) {
		return Finalized
	}
	return Locked
}

// Finalize persists today's record for classID from a live session's present set.
func (s *Service) Finalize(ctx context.Context, classID string, presentIDs []string) (*models.AttendanceRecord, error) {
	rec, err := s.create(ctx, classID, s.now(), presentIDs, ReasonDuplicateToday)
	s.record("finalize", err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventFinalized, rec)
	return rec, nil
}

// Import creates a record for an arbitrary date without a live session.
// The same uniqueness and roster rules apply; absentees are always computed.
func (s *Service) Import(ctx context.Context, classID string, date time.Time, presentIDs []string) (*models.AttendanceRecord, error) {
	if date.IsZero() {
		date = s.now()
	}
	reason := ReasonDuplicateDay
	if DayKey(date, s.loc) == s.Today() {
		reason = ReasonDuplicateToday
	}
	rec, err := s.create(ctx, classID, date, presentIDs, reason)
	s.record("import", err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventImported, rec)
	return rec, nil
}

func (s *Service) create(ctx context.Context, classID string, date time.Time, presentIDs []string, dupReason string) (*models.AttendanceRecord, error) {
	class, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	day := DayKey(date, s.loc)

	if _, err := s.store.FindAttendanceForDay(ctx, class.ID, day); err == nil {
		return nil, apperr.Conflict(dupReason)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing attendance: %w", err)
	}

	present, absent := Reconcile(class.Students, presentIDs)
	rec := &models.AttendanceRecord{
		ClassID:         class.ID,
		Day:             day,
		Date:            date.UTC(),
		PresentStudents: present,
		AbsentStudents:  absent,
	}
	if err := s.store.InsertAttendance(ctx, rec); err != nil {
		// The store's uniqueness constraint decides concurrent races.
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict(dupReason)
		}
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("class_id", class.ID).
		Str("day", day).
		Int("present", len(present)).
		Int("absent", len(absent)).
		Msg("Attendance recorded")
	return rec, nil
}

// Edit replaces the present set of a record and recomputes absentees from the
// class's current roster.
func (s *Service) Edit(ctx context.Context, id string, presentIDs []string) (*models.AttendanceRecord, error) {
	rec, err := s.edit(ctx, id, presentIDs)
	s.record("edit", err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventEdited, rec)
	return rec, nil
}

func (s *Service) edit(ctx context.Context, id string, presentIDs []string) (*models.AttendanceRecord, error) {
	rec, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Editable(rec) {
		return nil, apperr.Forbidden(ReasonTooOldToEdit)
	}

	roster, err := s.store.Roster(ctx, rec.ClassID)
	if err != nil {
		return nil, err
	}
	present, absent := Reconcile(rosterIDs(roster), presentIDs)
	return s.store.UpdateAttendancePresence(ctx, rec.ID, present, absent)
}

// Delete removes a record inside the edit window.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.GetAttendance(ctx, id)
	if err == nil && !s.Editable(rec) {
		err = apperr.Forbidden(ReasonTooOldToDelete)
	}
	if err == nil {
		err = s.store.DeleteAttendance(ctx, id)
	}
	s.record("delete", err)
	if err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, rec)
	return nil
}

// Get returns a record by id. Reads are allowed in every state.
func (s *Service) Get(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	return s.store.GetAttendance(ctx, id)
}

// GetDetail returns a record with student ids resolved to names and emails.
// Students no longer on the roster are looked up individually; unknown ids
// are kept with an empty name.
func (s *Service) GetDetail(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	rec, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return nil, err
	}
	roster, err := s.store.Roster(ctx, rec.ClassID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Student, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}

	resolve := func(ids []string) []models.Student {
		out := make([]models.Student, 0, len(ids))
		for _, sid := range ids {
			st, ok := byID[sid]
			if !ok {
				st = models.Student{ID: sid}
				if u, err := s.store.GetUser(ctx, sid); err == nil {
					st.Name, st.Email, st.FaceEnrolled = u.Name, u.Email, u.FaceEnrolled
				}
			}
			out = append(out, st)
		}
		return out
	}

	return &models.AttendanceDetail{
		ID:              rec.ID,
		ClassID:         rec.ClassID,
		Day:             rec.Day,
		Date:            rec.Date,
		PresentStudents: resolve(rec.PresentStudents),
		AbsentStudents:  resolve(rec.AbsentStudents),
	}, nil
}

// ListByClass returns a class's records, newest first.
func (s *Service) ListByClass(ctx context.Context, classID string) ([]models.AttendanceRecord, error) {
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return s.store.ListAttendanceByClass(ctx, classID)
}

// StudentSummary returns a student's totals across every record of a class.
func (s *Service) StudentSummary(ctx context.Context, classID, studentID string) (*models.StudentSummary, error) {
	records, err := s.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	attended := 0
	for i := range records {
		if contains(records[i].PresentStudents, studentID) {
			attended++
		}
	}
	return &models.StudentSummary{
		TotalClasses:         len(records),
		AttendedClasses:      attended,
		AttendancePercentage: Percentage(attended, len(records)),
	}, nil
}

// AbsentDays returns the days, oldest first, on which the student was marked absent.
func (s *Service) AbsentDays(ctx context.Context, classID, studentID string) ([]string, error) {
	records, err := s.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	var absent []models.AttendanceRecord
	for i := range records {
		if contains(records[i].AbsentStudents, studentID) {
			absent = append(absent, records[i])
		}
	}
	return sortedDays(absent), nil
}

// FinalizeMessage is the operator-facing confirmation for a new record.
func FinalizeMessage(rec *models.AttendanceRecord) string {
	return fmt.Sprintf("Attendance saved! Present: %d, Absent: %d", len(rec.PresentStudents), len(rec.AbsentStudents))
}

// Percentage formats part/total*100 with two decimals, "0.00" when total is zero.
func Percentage(part, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(part)/float64(total)*100)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Service) record(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrConflict):
		result = "conflict"
	case errors.Is(err, apperr.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.RecordAttendanceOperation(op, result)
}
