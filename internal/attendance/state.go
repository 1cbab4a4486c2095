// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"sort"
	"time"

	"github.com/tomtom215/rollcall/internal/models"
)

// DayLayout is the calendar-day key format stored with every record.
const DayLayout = "2006-01-02"

// State is the lifecycle position of an attendance record.
type State int

const (
	// Draft is an in-memory present set that has not been persisted.
	Draft State = iota
	// Finalized is a persisted record still inside the edit window.
	Finalized
	// Locked is a persisted record outside the edit window.
	Locked
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Finalized:
		return "finalized"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// DayKey truncates t to its calendar day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// daysBetween returns the number of calendar days from fromDay to toDay,
// both 'YYYY-MM-DD'. Negative when fromDay is after toDay.
func daysBetween(fromDay, toDay string) (int, error) {
	from, err := time.Parse(DayLayout, fromDay)
	if err != nil {
		return 0, err
	}
	to, err := time.Parse(DayLayout, toDay)
	if err != nil {
		return 0, err
	}
	// Both parse as UTC midnight so the difference is a whole number of days.
	return int(to.Sub(from).Hours() / 24), nil
}

// Reconcile partitions roster into present and absent ids. Present ids that
// are not on the roster are dropped, so present ∪ absent == roster and the two
// sets are disjoint. Both results follow roster order.
func Reconcile(roster []string, presentIDs []string) (present, absent []string) {
	seen := make(map[string]struct{}, len(presentIDs))
	for _, id := range presentIDs {
		seen[id] = struct{}{}
	}

	present = make([]string, 0, len(presentIDs))
	absent = make([]string, 0, len(roster))
	dup := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		if _, ok := dup[id]; ok {
			continue
		}
		dup[id] = struct{}{}
		if _, ok := seen[id]; ok {
			present = append(present, id)
		} else {
			absent = append(absent, id)
		}
	}
	return present, absent
}

// Union merges id lists, keeping first-occurrence order and dropping duplicates.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, set := range sets {
		for _, id := range set {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func rosterIDs(roster []models.Student) []string {
	ids := make([]string, len(roster))
	for i, s := range roster {
		ids[i] = s.ID
	}
	return ids
}

// sortedDays returns the days of records in ascending order.
func sortedDays(records []models.AttendanceRecord) []string {
	days := make([]string, 0, len(records))
	for i := range records {
		days = append(days, records[i].Day)
	}
	sort.Strings(days)
	return days
}
