// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package recognition

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	once, twice := NewAccumulator(), NewAccumulator()
	batch := []Result{{StudentID: "S2", Name: "Bea"}, {StudentID: "S1", Name: "Ada"}}

	once.Merge(batch)
	twice.Merge(batch)
	if added := twice.Merge(batch); added != 0 {
		t.Errorf("second Merge added %d, want 0", added)
	}

	if !reflect.DeepEqual(once.Snapshot(), twice.Snapshot()) {
		t.Errorf("snapshots differ: %v vs %v", once.Snapshot(), twice.Snapshot())
	}
}

func TestFirstSeenNameWins(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Merge([]Result{{StudentID: "S1", Name: "Ada"}})
	acc.Merge([]Result{{StudentID: "S1", Name: "Ada Lovelace"}, {StudentID: "S3", Name: "Cy"}, {StudentID: ""}})

	want := []Result{{StudentID: "S1", Name: "Ada"}, {StudentID: "S3", Name: "Cy"}}
	if got := acc.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func TestSnapshotIsPureAndDrainClears(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Merge([]Result{{StudentID: "b"}, {StudentID: "a"}})

	first := acc.Snapshot()
	first[0] = "mutated"
	if got := acc.Snapshot(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Snapshot() = %v, want [a b]", got)
	}

	if got := acc.Drain(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Drain() = %v", got)
	}
	if acc.Len() != 0 {
		t.Errorf("Len() after Drain = %d", acc.Len())
	}
	if got := acc.Drain(); len(got) != 0 || got == nil {
		t.Errorf("second Drain() = %#v, want empty non-nil", got)
	}

	// A drained accumulator starts over.
	acc.Merge([]Result{{StudentID: "a", Name: "again"}})
	if acc.Entries()[0].Name != "again" {
		t.Error("expected name from post-drain merge")
	}
}

func TestConcurrentMerge(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				acc.Merge([]Result{{StudentID: fmt.Sprintf("S%02d", i), Name: fmt.Sprintf("worker-%d", w)}})
			}
		}(w)
	}
	wg.Wait()

	if acc.Len() != 50 {
		t.Errorf("Len() = %d, want 50", acc.Len())
	}
}
