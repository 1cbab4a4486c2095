// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"sync"
	"time"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/recognition"
)

// Role distinguishes a single-shot enrollment pairing from a live one.
type Role string

const (
	RoleCapture Role = "capture"
	RoleLive    Role = "live"
)

// Registry reasons surfaced to callers.
const (
	ReasonSessionNotFound = "Session not found or has expired."
	ReasonSessionInUse    = "Session is already registered on another connection."
)

// Channel is an operator's open connection.
type Channel interface {
	// ID is unique per connection for the life of the process.
	ID() uint64
	// Send enqueues msg without blocking.
	Send(msg Outbound) error
}

// Pairing is one registry entry. It owns the live session state, which is
// released with the entry.
type Pairing struct {
	ID           string
	Role         Role
	Channel      Channel
	Live         *recognition.LiveSession // nil for capture pairings
	RegisteredAt time.Time
}

// Registry maps pairing ids to operator channels. All methods are safe for
// concurrent use; a Register is visible to every subsequent Lookup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Pairing
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Pairing)}
}

// Register binds id to ch. Registering an id already bound to another open
// channel fails with a Conflict; registering it again from the same channel is
// a no-op that returns the existing entry.
func (r *Registry) Register(id string, ch Channel, role Role, classID string) (*Pairing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[id]; ok {
		if existing.Channel.ID() == ch.ID() {
			return existing, nil
		}
		metrics.RelayRegistrations.WithLabelValues("conflict").Inc()
		return nil, apperr.Conflict(ReasonSessionInUse)
	}

	p := &Pairing{ID: id, Role: role, Channel: ch, RegisteredAt: time.Now()}
	if role == RoleLive {
		p.Live = recognition.NewLiveSession(classID)
	}
	r.entries[id] = p
	metrics.RelayRegistrations.WithLabelValues("ok").Inc()
	metrics.RelayPairings.Set(float64(len(r.entries)))
	return p, nil
}

// Lookup returns the operator channel bound to id.
func (r *Registry) Lookup(id string) (Channel, error) {
	p, err := r.Pairing(id)
	if err != nil {
		return nil, err
	}
	return p.Channel, nil
}

// Pairing returns the entry bound to id.
func (r *Registry) Pairing(id string) (*Pairing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.entries[id]
	if !ok {
		return nil, apperr.NotFound(ReasonSessionNotFound)
	}
	return p, nil
}

// Unregister removes id if it is still bound to ch. It is idempotent, and a
// late call from a closed channel never evicts a newer binding.
// It reports whether an entry was removed.
func (r *Registry) Unregister(id string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[id]
	if !ok || p.Channel.ID() != ch.ID() {
		return false
	}
	delete(r.entries, id)
	metrics.RelayPairings.Set(float64(len(r.entries)))
	return true
}

// Len is the number of open pairings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
