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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rollcall/internal/models"
)

// CreateUser inserts a teacher or student. Emails are stored lowercased.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, string(user.Role), user.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) || isTransactionConflict(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, role, face_embedding IS NOT NULL, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.FaceEnrolled, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// SetFaceEmbedding stores the student's face vector, replacing any previous one.
func (db *DB) SetFaceEmbedding(ctx context.Context, userID string, embedding []float32) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	encoded, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `UPDATE users SET face_embedding = ? WHERE id = ?`, string(encoded), userID)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListEmbeddings returns every enrolled face except excludeID's, for duplicate checks.
func (db *DB) ListEmbeddings(ctx context.Context, excludeID string) ([]models.FaceEmbedding, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, face_embedding FROM users
		 WHERE face_embedding IS NOT NULL AND id <> ?
		 ORDER BY created_at`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer closeWithLog(rows, "rows")
	return scanEmbeddings(rows)
}

// RosterEmbeddings returns the enrolled faces of a class's roster, in roster order.
func (db *DB) RosterEmbeddings(ctx context.Context, classID string) ([]models.FaceEmbedding, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.name, u.face_embedding
		 FROM enrollments e JOIN users u ON u.id = e.student_id
		 WHERE e.class_id = ? AND u.face_embedding IS NOT NULL
		 ORDER BY e.position`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster embeddings: %w", err)
	}
	defer closeWithLog(rows, "rows")
	return scanEmbeddings(rows)
}

func scanEmbeddings(rows *sql.Rows) ([]models.FaceEmbedding, error) {
	var out []models.FaceEmbedding
	for rows.Next() {
		var fe models.FaceEmbedding
		var raw string
		if err := rows.Scan(&fe.StudentID, &fe.Name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &fe.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", fe.StudentID, err)
		}
		out = append(out, fe)
	}
	return out, rows.Err()
}
