// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/apperr"
)

// ticketKeyPrefix namespaces tickets in the store.
const ticketKeyPrefix = "ticket:"

// Ticket is a pairing id issued to an operator over HTTP and not yet
// registered on a channel. It carries the pairing's role and class to the
// registration.
type Ticket struct {
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	ClassID   string    `json:"classId,omitempty"`
	IssuedBy  string    `json:"issuedBy,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TicketStore holds pending tickets in an in-memory BadgerDB. Entries carry a
// TTL so tickets that are never registered disappear on their own.
type TicketStore struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

// NewTicketStore opens an in-memory ticket store.
func NewTicketStore(ttl time.Duration) (*TicketStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Suppress BadgerDB internal logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ticket store: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TicketStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Issue creates and stores a ticket with a fresh session id.
func (s *TicketStore) Issue(ctx context.Context, role Role, classID, issuedBy string) (*Ticket, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}
	t := &Ticket{
		SessionID: id,
		Role:      role,
		ClassID:   classID,
		IssuedBy:  issuedBy,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Put stores t until its ExpiresAt.
func (s *TicketStore) Put(_ context.Context, t *Ticket) error {
	if t == nil || t.SessionID == "" {
		return errors.New("ticket session id cannot be empty")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(ticketKeyPrefix+t.SessionID), data)
		if ttl := t.ExpiresAt.Sub(s.now()); ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get returns the ticket for id without consuming it. A ticket stays
// readable until it expires, so an operator that reconnects under the same id
// gets the same role and class back.
func (s *TicketStore) Get(_ context.Context, id string) (*Ticket, error) {
	var t *Ticket
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		t, err = s.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Hold clears the expiry of the ticket for id while a channel is registered
// under it.
func (s *TicketStore) Hold(ctx context.Context, id string) error {
	return s.update(ctx, id, func(t *Ticket) { t.ExpiresAt = time.Time{} })
}

// Release restarts the ticket's TTL once its channel has gone away.
func (s *TicketStore) Release(ctx context.Context, id string) error {
	return s.update(ctx, id, func(t *Ticket) { t.ExpiresAt = s.now().Add(s.ttl) })
}

func (s *TicketStore) update(_ context.Context, id string, mutate func(*Ticket)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		t, err := s.read(txn, id)
		if err != nil {
			return err
		}
		mutate(t)
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal ticket: %w", err)
		}
		entry := badger.NewEntry([]byte(ticketKeyPrefix+id), data)
		if !t.ExpiresAt.IsZero() {
			entry = entry.WithTTL(t.ExpiresAt.Sub(s.now()))
		}
		return txn.SetEntry(entry)
	})
}

// read decodes the ticket for id. Expired tickets read as not found.
func (s *TicketStore) read(txn *badger.Txn, id string) (*Ticket, error) {
	item, err := txn.Get([]byte(ticketKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.NotFound(ReasonSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	var t Ticket
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &t)
	}); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	// TTL covers this too; the check keeps an injected clock authoritative.
	if !t.ExpiresAt.IsZero() && s.now().After(t.ExpiresAt) {
		return nil, apperr.NotFound(ReasonSessionNotFound)
	}
	return &t, nil
}

// Close releases the store.
func (s *TicketStore) Close() error {
	return s.db.Close()
}
