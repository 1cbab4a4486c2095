// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/models"
)

// memStore is an in-memory Store with the same uniqueness rule as the database.
type memStore struct {
	mu       sync.Mutex
	classes  map[string]*models.Class
	users    map[string]*models.User
	records  map[string]*models.AttendanceRecord
	nextID   int
	findHook func() // runs between the duplicate check and insert
}

func newMemStore() *memStore {
	return &memStore{
		classes: map[string]*models.Class{},
		users:   map[string]*models.User{},
		records: map[string]*models.AttendanceRecord{},
	}
}

func (m *memStore) addClass(id string, students ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[id] = &models.Class{ID: id, SubjectCode: "C-" + id, Students: append([]string(nil), students...)}
	for _, s := range students {
		m.users[s] = &models.User{ID: s, Name: "Name " + s, Email: s + "@school.test"}
	}
}

func (m *memStore) setRoster(id string, students ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[id].Students = append([]string(nil), students...)
	for _, s := range students {
		if _, ok := m.users[s]; !ok {
			m.users[s] = &models.User{ID: s, Name: "Name " + s, Email: s + "@school.test"}
		}
	}
}

func (m *memStore) GetClass(_ context.Context, id string) (*models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, apperr.NotFound("Class not found.")
	}
	cp := *c
	cp.Students = append([]string(nil), c.Students...)
	return &cp, nil
}

func (m *memStore) Roster(_ context.Context, classID string) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return []models.Student{}, nil
	}
	out := make([]models.Student, 0, len(c.Students))
	for _, id := range c.Students {
		u := m.users[id]
		out = append(out, models.Student{ID: id, Name: u.Name, Email: u.Email})
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("Student not found.")
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) InsertAttendance(_ context.Context, rec *models.AttendanceRecord) error {
	if m.findHook != nil {
		m.findHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ClassID == rec.ClassID && r.Day == rec.Day {
			return apperr.Conflict("duplicate key")
		}
	}
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memStore) FindAttendanceForDay(_ context.Context, classID, day string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ClassID == classID && r.Day == day {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Attendance record not found.")
}

func (m *memStore) GetAttendance(_ context.Context, id string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("Attendance record not found.")
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) UpdateAttendancePresence(_ context.Context, id string, present, absent []string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("Attendance record not found.")
	}
	r.PresentStudents, r.AbsentStudents = present, absent
	cp := *r
	return &cp, nil
}

func (m *memStore) DeleteAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return apperr.NotFound("Attendance record not found.")
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) ListAttendanceByClass(_ context.Context, classID string) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AttendanceRecord{}
	for _, r := range m.records {
		if r.ClassID == classID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// put stores a record directly, bypassing the state machine.
func (m *memStore) put(rec models.AttendanceRecord) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	m.records[rec.ID] = &rec
	return rec.ID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}
