// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package models holds the data types shared between the store, the attendance
// state machine, the export builder and the HTTP layer.
package models

import "time"

// Role distinguishes operators from roster members.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// User is a teacher or student account.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	FaceEnrolled bool      `json:"isEnrolled"`
	CreatedAt    time.Time `json:"date"`
}

// Class is a subject taught by one teacher to an enrolled roster.
type Class struct {
	ID          string   `json:"_id"`
	SubjectName string   `json:"subjectName"`
	SubjectCode string   `json:"subjectCode"`
	TeacherID   string   `json:"teacher"`
	Students    []string `json:"students"`
}

// Student is one roster entry, in enrollment order.
type Student struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	FaceEnrolled bool   `json:"isEnrolled"`
}

// AttendanceRecord is the persisted outcome of one class meeting.
// PresentStudents and AbsentStudents partition the roster at the time of the
// last finalize or edit.
type AttendanceRecord struct {
	ID              string    `json:"_id"`
	ClassID         string    `json:"classId"`
	Day             string    `json:"day"` // YYYY-MM-DD in the attendance timezone
	Date            time.Time `json:"date"`
	PresentStudents []string  `json:"presentStudents"`
	AbsentStudents  []string  `json:"absentStudents"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AttendanceDetail is a record with its student ids resolved to names and emails.
type AttendanceDetail struct {
	ID              string    `json:"_id"`
	ClassID         string    `json:"classId"`
	Day             string    `json:"day"`
	Date            time.Time `json:"date"`
	PresentStudents []Student `json:"presentStudents"`
	AbsentStudents  []Student `json:"absentStudents"`
}

// StudentSummary is one student's attendance totals for a class.
type StudentSummary struct {
	TotalClasses         int    `json:"totalClasses"`
	AttendedClasses      int    `json:"attendedClasses"`
	AttendancePercentage string `json:"attendancePercentage"`
}

// FaceEmbedding is an enrolled student's face vector as returned by the
// recognition service.
type FaceEmbedding struct {
	StudentID string    `json:"_id"`
	Name      string    `json:"name,omitempty"`
	Embedding []float32 `json:"embedding"`
}
