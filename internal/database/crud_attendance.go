// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rollcall/internal/models"
)

const attendanceColumns = `id, class_id, day, taken_at, present, absent, created_at, updated_at`

// InsertAttendance persists a new record. A second record for the same class
// and day, including the loser of a concurrent insert race, returns
// ErrAttendanceExists.
func (db *DB) InsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	present, absent, err := encodeIDSets(rec.PresentStudents, rec.AbsentStudents)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO attendance (`+attendanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClassID, rec.Day, rec.Date.UTC(), present, absent, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) || isTransactionConflict(err) {
			return ErrAttendanceExists
		}
		return fmt.Errorf("failed to insert attendance: %w", err)
	}
	return nil
}

// FindAttendanceForDay returns the class's record for day, or ErrAttendanceNotFound.
func (db *DB) FindAttendanceForDay(ctx context.Context, classID, day string) (*models.AttendanceRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE class_id = ? AND day = ?`, classID, day)
	return scanAttendance(row)
}

// GetAttendance retrieves a record by ID.
func (db *DB) GetAttendance(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id = ?`, id)
	return scanAttendance(row)
}

// UpdateAttendancePresence replaces both id sets of a record in one statement.
func (db *DB) UpdateAttendancePresence(ctx context.Context, id string, presentIDs, absentIDs []string) (*models.AttendanceRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	present, absent, err := encodeIDSets(presentIDs, absentIDs)
	if err != nil {
		return nil, err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE attendance SET present = ?, absent = ?, updated_at = ? WHERE id = ?`,
		present, absent, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update attendance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrAttendanceNotFound
	}
	return db.GetAttendance(ctx, id)
}

// DeleteAttendance removes a record.
func (db *DB) DeleteAttendance(ctx context.Context, id string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM attendance WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAttendanceNotFound
	}
	return nil
}

// ListAttendanceByClass returns every record for a class, newest first.
func (db *DB) ListAttendanceByClass(ctx context.Context, classID string) ([]models.AttendanceRecord, error) {
	return db.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE class_id = ? ORDER BY taken_at DESC`, classID)
}

// ListAttendanceInRange returns the class's records whose day falls in
// [startDay, endDay] inclusive, oldest first. Days are 'YYYY-MM-DD' strings,
// so lexical comparison is chronological.
func (db *DB) ListAttendanceInRange(ctx context.Context, classID, startDay, endDay string) ([]models.AttendanceRecord, error) {
	return db.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance
		 WHERE class_id = ? AND day >= ? AND day <= ?
		 ORDER BY taken_at ASC`, classID, startDay, endDay)
}

func (db *DB) queryAttendance(ctx context.Context, query string, args ...any) ([]models.AttendanceRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer closeWithLog(rows, "rows")

	records := []models.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanAttendance(row interface{ Scan(...any) error }) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	var present, absent string
	err := row.Scan(&rec.ID, &rec.ClassID, &rec.Day, &rec.Date, &present, &absent, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to scan attendance: %w", err)
	}
	if err := json.Unmarshal([]byte(present), &rec.PresentStudents); err != nil {
		return nil, fmt.Errorf("failed to decode present set of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(absent), &rec.AbsentStudents); err != nil {
		return nil, fmt.Errorf("failed to decode absent set of %s: %w", rec.ID, err)
	}
	if rec.PresentStudents == nil {
		rec.PresentStudents = []string{}
	}
	if rec.AbsentStudents == nil {
		rec.AbsentStudents = []string{}
	}
	return &rec, nil
}

func encodeIDSets(present, absent []string) (string, string, error) {
	if present == nil {
		present = []string{}
	}
	if absent == nil {
		absent = []string{}
	}
	p, err := json.Marshal(present)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode present set: %w", err)
	}
	a, err := json.Marshal(absent)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode absent set: %w", err)
	}
	return string(p), string(a), nil
}
