// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package export turns a date range of attendance records into a
// per-student, per-date presence grid and renders it as XLSX or CSV.
package export

import (
	"strconv"
	"time"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/models"
)

// Cell marks.
const (
	Present = "P"
	Absent  = "A"
)

// Fixed header columns.
const (
	HeaderName       = "Student Name"
	HeaderEmail      = "Email"
	HeaderPresent    = "Total Present"
	HeaderAbsent     = "Total Absent"
	HeaderPercentage = "Percentage"
)

// DateFormatter renders a record's date as its column label. Two records whose
// labels match are the same calendar day.
type DateFormatter func(time.Time) string

// DayFormatter labels dates as YYYY-MM-DD in loc.
func DayFormatter(loc *time.Location) DateFormatter {
	return func(t time.Time) string { return attendance.DayKey(t, loc) }
}

// Row is one roster member's line of the grid.
type Row struct {
	Name       string
	Email      string
	Marks      []string // one P/A per date column
	Present    int
	Absent     int
	Percentage string // two decimals, "0.00" with no dates
}

// Values flattens the row in header order.
func (r Row) Values() []string {
	out := make([]string, 0, len(r.Marks)+5)
	out = append(out, r.Name, r.Email)
	out = append(out, r.Marks...)
	return append(out, strconv.Itoa(r.Present), strconv.Itoa(r.Absent), r.Percentage)
}

// Grid is the pivot: rows in roster order, columns
// [name, email, ...dates, present, absent, percentage].
type Grid struct {
	Dates []string
	Rows  []Row
}

// Header returns the column labels.
func (g *Grid) Header() []string {
	h := make([]string, 0, len(g.Dates)+5)
	h = append(h, HeaderName, HeaderEmail)
	h = append(h, g.Dates...)
	return append(h, HeaderPresent, HeaderAbsent, HeaderPercentage)
}

// BuildPivot builds the grid from records ordered by date ascending.
//
// Each distinct formatted date becomes a column in first-occurrence order. If
// two records share a calendar day the first one decides the cell, and a
// student is counted present for that day at most once.
func BuildPivot(records []models.AttendanceRecord, roster []models.Student, formatDate DateFormatter) *Grid {
	g := &Grid{}
	column := make(map[string]int)
	labels := make([]string, len(records))
	present := make([]map[string]struct{}, len(records))

	for i := range records {
		label := formatDate(records[i].Date)
		labels[i] = label
		if _, ok := column[label]; !ok {
			column[label] = len(g.Dates)
			g.Dates = append(g.Dates, label)
		}
		set := make(map[string]struct{}, len(records[i].PresentStudents))
		for _, id := range records[i].PresentStudents {
			set[id] = struct{}{}
		}
		present[i] = set
	}

	total := len(g.Dates)
	g.Rows = make([]Row, 0, len(roster))
	for _, st := range roster {
		row := Row{Name: st.Name, Email: st.Email, Marks: make([]string, total)}
		counted := make(map[string]bool, total)

		for i, label := range labels {
			col := column[label]
			_, isPresent := present[i][st.ID]
			if row.Marks[col] == "" {
				row.Marks[col] = Absent
				if isPresent {
					row.Marks[col] = Present
				}
			}
			if isPresent && !counted[label] {
				counted[label] = true
				row.Present++
			}
		}

		row.Absent = total - row.Present
		row.Percentage = attendance.Percentage(row.Present, total)
		g.Rows = append(g.Rows, row)
	}
	return g
}
