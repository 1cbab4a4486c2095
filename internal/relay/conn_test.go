// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"sync"
	"testing"
	"time"
)

func TestConnIdleTimeoutRacesClose(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		c := newConn(nil, nil, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.armIdleTimeout(time.Microsecond)
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()

		select {
		case <-c.done:
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: connection not closed", i)
		}
	}
}

func TestConnIdleTimeoutClosesInactive(t *testing.T) {
	t.Parallel()

	c := newConn(nil, nil, 1)
	c.armIdleTimeout(5 * time.Millisecond)

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle connection was not closed")
	}
}

func TestConnIdleTimeoutSparesActive(t *testing.T) {
	t.Parallel()

	c := newConn(nil, nil, 1)
	c.markActive()
	c.armIdleTimeout(5 * time.Millisecond)
	defer c.Close()

	select {
	case <-c.done:
		t.Fatal("active connection was closed by the idle timeout")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnArmAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	c := newConn(nil, nil, 1)
	c.Close()
	c.armIdleTimeout(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleTimer != nil {
		t.Error("timer armed on a closed connection")
	}
}
