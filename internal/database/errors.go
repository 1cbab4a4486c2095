// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package database

import (
	"io"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/logging"
)

// Store errors. Each wraps an apperr kind so the API layer can map it.
var (
	ErrUserNotFound       = apperr.NotFound("Student not found.")
	ErrEmailTaken         = apperr.Conflict("A user with this email already exists.")
	ErrClassNotFound      = apperr.NotFound("Class not found.")
	ErrSubjectCodeTaken   = apperr.Conflict("A class with this subject code already exists.")
	ErrAlreadyEnrolled    = apperr.Conflict("Student is already enrolled in this class.")
	ErrAttendanceNotFound = apperr.NotFound("Attendance record not found.")
	ErrAttendanceExists   = apperr.Conflict("Attendance has already been taken for this class today.")
)

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Used on error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
