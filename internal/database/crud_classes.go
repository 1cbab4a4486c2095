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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rollcall/internal/models"
)

// CreateClass inserts a class. Subject codes are stored uppercased.
func (db *DB) CreateClass(ctx context.Context, class *models.Class) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	class.SubjectCode = strings.ToUpper(strings.TrimSpace(class.SubjectCode))
	if class.Students == nil {
		class.Students = []string{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO classes (id, subject_name, subject_code, teacher_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		class.ID, class.SubjectName, class.SubjectCode, class.TeacherID, time.Now().UTC())
	if err != nil {
		if isUniqueConstraintError(err) || isTransactionConflict(err) {
			return ErrSubjectCodeTaken
		}
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

// GetClass retrieves a class and its roster ids.
func (db *DB) GetClass(ctx context.Context, id string) (*models.Class, error) {
	return db.getClass(ctx, `SELECT id, subject_name, subject_code, teacher_id FROM classes WHERE id = ?`, id)
}

// GetClassByCode retrieves a class by its subject code (case-insensitive).
func (db *DB) GetClassByCode(ctx context.Context, code string) (*models.Class, error) {
	return db.getClass(ctx, `SELECT id, subject_name, subject_code, teacher_id FROM classes WHERE subject_code = ?`,
		strings.ToUpper(strings.TrimSpace(code)))
}

func (db *DB) getClass(ctx context.Context, query, arg string) (*models.Class, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c models.Class
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.SubjectName, &c.SubjectCode, &c.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	roster, err := db.Roster(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Students = make([]string, len(roster))
	for i, s := range roster {
		c.Students[i] = s.ID
	}
	return &c, nil
}

// EnrollStudent appends a student to the end of a class roster.
func (db *DB) EnrollStudent(ctx context.Context, classID, studentID string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO enrollments (class_id, student_id, position, enrolled_at)
		 SELECT ?, ?, COALESCE(MAX(position), 0) + 1, ? FROM enrollments WHERE class_id = ?`,
		classID, studentID, time.Now().UTC(), classID)
	if err != nil {
		if isUniqueConstraintError(err) || isTransactionConflict(err) {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	return nil
}

// Roster returns the class's students in enrollment order.
// An unknown class yields an empty roster.
func (db *DB) Roster(ctx context.Context, classID string) ([]models.Student, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.face_embedding IS NOT NULL
		 FROM enrollments e JOIN users u ON u.id = e.student_id
		 WHERE e.class_id = ?
		 ORDER BY e.position`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer closeWithLog(rows, "rows")

	roster := []models.Student{}
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.FaceEnrolled); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		roster = append(roster, s)
	}
	return roster, rows.Err()
}
