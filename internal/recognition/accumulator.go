// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package recognition

import (
	"sort"
	"sync"
)

// Result is one recognized student.
type Result struct {
	StudentID string `json:"_id"`
	Name      string `json:"name"`
}

// Accumulator is the present set of one live pairing. Merging is idempotent
// and the first display name seen for a student is kept.
type Accumulator struct {
	mu    sync.Mutex
	order []string
	names map[string]string
}

// NewAccumulator creates an empty present set.
func NewAccumulator() *Accumulator {
	return &Accumulator{names: make(map[string]string)}
}

// Merge inserts every result not already present and returns how many were new.
func (a *Accumulator) Merge(results []Result) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, r := range results {
		if r.StudentID == "" {
			continue
		}
		if _, ok := a.names[r.StudentID]; ok {
			continue
		}
		a.names[r.StudentID] = r.Name
		a.order = append(a.order, r.StudentID)
		added++
	}
	return added
}

// Snapshot returns the present ids, sorted, without clearing them.
func (a *Accumulator) Snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, len(a.order))
	copy(ids, a.order)
	sort.Strings(ids)
	return ids
}

// Entries returns the present students in first-seen order.
func (a *Accumulator) Entries() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Result, len(a.order))
	for i, id := range a.order {
		out[i] = Result{StudentID: id, Name: a.names[id]}
	}
	return out
}

// Drain returns the present ids, sorted, and clears the set.
func (a *Accumulator) Drain() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := a.order
	a.order = nil
	a.names = make(map[string]string)
	sort.Strings(ids)
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// Len is the number of present students.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}
