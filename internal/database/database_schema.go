// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
database_schema.go - Database Schema Management

Tables:
  - users: teachers and students, with the optional face embedding (JSON array)
  - classes: one row per subject, unique subject_code
  - enrollments: class roster, ordered by position (enrollment order)
  - attendance: one row per class per calendar day

The attendance day is stored as a 'YYYY-MM-DD' string computed in the
attendance timezone. UNIQUE(class_id, day) is the store-level guard that makes
concurrent finalize calls for the same class and day serialize to one winner.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the tables and indexes
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := append(getTableCreationQueries(), getIndexQueries()...)
	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'student',
			face_embedding TEXT,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS classes (
			id TEXT PRIMARY KEY,
			subject_name TEXT NOT NULL,
			subject_code TEXT NOT NULL UNIQUE,
			teacher_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS enrollments (
			class_id TEXT NOT NULL,
			student_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			enrolled_at TIMESTAMP NOT NULL,
			PRIMARY KEY (class_id, student_id)
		);`,

		`CREATE TABLE IF NOT EXISTS attendance (
			id TEXT PRIMARY KEY,
			class_id TEXT NOT NULL,
			day VARCHAR NOT NULL,
			taken_at TIMESTAMP NOT NULL,
			present TEXT NOT NULL DEFAULT '[]',
			absent TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (class_id, day)
		);`,
	}
}

func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_classes_teacher ON classes(teacher_id);`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_class_taken ON attendance(class_id, taken_at);`,
	}
}
