// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package export

import (
	"context"
	"time"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

// ReasonNoRecords is returned when the range holds no attendance.
const ReasonNoRecords = "No attendance records found for the selected date range."

// open bounds used when the caller gives no range
const (
	minDay = "0001-01-01"
	maxDay = "9999-12-31"
)

// Store is the read side the exporter needs.
type Store interface {
	GetClass(ctx context.Context, id string) (*models.Class, error)
	Roster(ctx context.Context, classID string) ([]models.Student, error)
	ListAttendanceInRange(ctx context.Context, classID, startDay, endDay string) ([]models.AttendanceRecord, error)
}

// Report is a built grid and the metadata needed to name its file.
type Report struct {
	Class *models.Class
	Grid  *Grid
	Start string
	End   string
}

// Filename names the report file for format f.
func (r *Report) Filename(f Format) string {
	return Filename(r.Class.SubjectCode, r.Start, r.End, f)
}

// SheetTitle is the worksheet name.
func (r *Report) SheetTitle() string {
	return r.Class.SubjectCode + " Attendance"
}

// Exporter builds pivot reports for a class.
type Exporter struct {
	store Store
	loc   *time.Location
}

// NewExporter labels date columns in loc.
func NewExporter(store Store, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{store: store, loc: loc}
}

// Build loads the class roster and the records in [startDay, endDay] and pivots
// them. Either bound may be empty for an open range; the report then carries
// the first and last record days. An empty range is a NotFound.
func (e *Exporter) Build(ctx context.Context, classID, startDay, endDay string) (*Report, error) {
	for _, d := range []string{startDay, endDay} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(attendance.DayLayout, d); err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, "startDate and endDate must be YYYY-MM-DD", err)
		}
	}
	if startDay != "" && endDay != "" && startDay > endDay {
		return nil, apperr.Validation("startDate must not be after endDate")
	}

	class, err := e.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	roster, err := e.store.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}

	lo, hi := startDay, endDay
	if lo == "" {
		lo = minDay
	}
	if hi == "" {
		hi = maxDay
	}
	records, err := e.store.ListAttendanceInRange(ctx, classID, lo, hi)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperr.NotFound(ReasonNoRecords)
	}

	if startDay == "" {
		startDay = records[0].Day
	}
	if endDay == "" {
		endDay = records[len(records)-1].Day
	}

	grid := BuildPivot(records, roster, DayFormatter(e.loc))
	metrics.ExportRows.Observe(float64(len(grid.Rows)))
	logging.Ctx(ctx).Info().
		Str("class_id", classID).
		Int("records", len(records)).
		Int("dates", len(grid.Dates)).
		Int("students", len(grid.Rows)).
		Msg("Attendance export built")

	return &Report{Class: class, Grid: grid, Start: startDay, End: endDay}, nil
}
