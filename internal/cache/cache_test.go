// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clock := newFakeClock()
	c := New[string](ttl, WithClock(clock.Now), WithCleanupInterval(0))
	return c, clock
}

func TestCacheBasicOperations(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists || value != "value1" {
		t.Errorf("Get(key1) = %q, %v; want value1, true", value, exists)
	}

	if _, exists := c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	clock.Advance(59 * time.Second)
	if _, exists := c.Get("key1"); !exists {
		t.Fatal("Expected key1 to exist before its TTL")
	}

	clock.Advance(time.Second)
	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired at its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expired entry should be removed on access", c.Len())
	}
}

func TestCacheSetWithTTLOverridesDefault(t *testing.T) {
	c, clock := newTestCache(time.Hour)
	defer c.Close()

	c.SetWithTTL("short", "v", time.Second)
	c.Set("long", "v")
	clock.Advance(2 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default TTL entry should still be present")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("Expected a to be deleted")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, deleting a missing key should not count", got)
	}

	c.Clear()
	stats := c.Stats()
	if c.Len() != 0 || stats.TotalKeys != 0 || stats.Evictions != 3 {
		t.Errorf("after Clear: len = %d, stats = %+v", c.Len(), stats)
	}
}

func TestCacheStatsAndHitRate(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Close()

	if c.HitRate() != 0 {
		t.Errorf("HitRate() = %v before any lookup", c.HitRate())
	}

	c.Set("key", "v")
	c.Get("key")
	c.Get("key")
	c.Get("key")
	c.Get("other")

	stats := c.Stats()
	if stats.Hits != 3 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := c.HitRate(); got != 75.0 {
		t.Errorf("HitRate() = %v, want 75", got)
	}
}

func TestCachePrune(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("old1", "v")
	c.Set("old2", "v")
	clock.Advance(30 * time.Second)
	c.Set("fresh", "v")
	clock.Advance(30 * time.Second)

	if removed := c.Prune(); removed != 2 {
		t.Errorf("Prune() = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	stats := c.Stats()
	if !stats.LastCleanup.Equal(clock.Now()) || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCacheCleanupLoop(t *testing.T) {
	c := New[int](time.Millisecond, WithCleanupInterval(5*time.Millisecond))
	defer c.Close()

	c.Set("k", 1)
	deadline := time.Now().Add(2 * time.Second)
	for c.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("cleanup loop never removed the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := New[int](time.Minute)
	c.Close()
	c.Close()
}

func TestCacheStoresStructuredValues(t *testing.T) {
	c := New[[]int](time.Minute, WithCleanupInterval(0))
	defer c.Close()

	c.Set("ids", []int{1, 2, 3})
	got, ok := c.Get("ids")
	if !ok || len(got) != 3 {
		t.Errorf("Get(ids) = %v, %v", got, ok)
	}

	if got, ok := c.Get("none"); ok || got != nil {
		t.Errorf("Get(none) = %v, %v; want zero value", got, ok)
	}
}

func TestCacheConcurrency(t *testing.T) {
	c := New[int](time.Minute, WithCleanupInterval(time.Millisecond))
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				c.Set(key, g)
				c.Get(key)
				if i%50 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Hits+stats.Misses != 8*200 {
		t.Errorf("lookups = %d, want %d", stats.Hits+stats.Misses, 8*200)
	}
}
