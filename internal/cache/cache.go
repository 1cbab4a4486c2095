// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package cache provides a small thread-safe in-memory cache with per-entry
// expiration, used to keep hot read paths such as per-frame roster lookups
// off the database.
package cache

import (
	"sync"
	"time"
)

// cleanupInterval is how often the background loop drops expired entries.
const cleanupInterval = time.Minute

// Entry is a cached value with its expiry.
type Entry[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Stats tracks cache performance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a thread-safe TTL cache keyed by string.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now      func() time.Time
	interval time.Duration
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval sets the background cleanup period. Zero or negative
// disables the loop; expired entries are then only dropped on access or Prune.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// New creates a cache whose entries live for ttl and starts the background
// cleanup loop. Call Close to stop it.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now, interval: cleanupInterval}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		now:     o.now,
		stop:    make(chan struct{}),
	}
	c.stats.LastCleanup = o.now()

	if o.interval > 0 {
		go c.cleanupLoop(o.interval)
	}
	return c
}

// Get returns the value for key. An expired entry is removed and reported as
// a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		c.record(func(s *Stats) { s.Misses++ })
		return zero, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, ok := c.entries[key]; ok && !c.now().Before(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		return zero, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return entry.Data, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry[V]{Data: value, ExpiresAt: c.now().Add(ttl)}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) { s.TotalKeys = n })
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	n := int64(len(c.entries))
	c.mu.Unlock()

	if existed {
		c.record(func(s *Stats) { s.Evictions++; s.TotalKeys = n })
	}
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()

	c.record(func(s *Stats) { s.Evictions += evictions; s.TotalKeys = 0 })
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups, 0 before any lookup.
func (c *Cache[V]) HitRate() float64 {
	stats := c.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache[V]) Prune() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += int64(removed)
		s.TotalKeys = n
		s.LastCleanup = now
	})
	return removed
}

// Close stops the cleanup loop. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

func (c *Cache[V]) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}
