// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/validation"
)

// Request bodies. Validation tags follow go-playground/validator v10 syntax;
// the sessionid and day tags are registered by the validation package.

// UploadRequest is a single-shot capture from a device.
type UploadRequest struct {
	Image string `json:"image" validate:"required"`
}

// RecognizeRequest is one live frame submitted by the operator.
// ClassID binds a session that was created without a class.
type RecognizeRequest struct {
	ClassID string `json:"classId" validate:"omitempty,max=128"`
	Image   string `json:"image" validate:"required"`
}

// FinalizeRequest commits today's record. When SessionID is set the live
// session's present set is merged into PresentStudents.
type FinalizeRequest struct {
	ClassID         string   `json:"classId" validate:"required,max=128"`
	PresentStudents []string `json:"presentStudents" validate:"dive,required"`
	SessionID       string   `json:"sessionId" validate:"omitempty,sessionid"`
}

// ImportRequest creates a record for an arbitrary day.
type ImportRequest struct {
	ClassID         string   `json:"classId" validate:"required,max=128"`
	Date            string   `json:"date" validate:"required,day"`
	PresentStudents []string `json:"presentStudents" validate:"dive,required"`
}

// EditRequest replaces the present set of a record.
type EditRequest struct {
	PresentStudents []string `json:"presentStudents" validate:"dive,required"`
}

// CreateClassRequest creates a class owned by the caller.
type CreateClassRequest struct {
	SubjectName string `json:"subjectName" validate:"required,max=200"`
	SubjectCode string `json:"subjectCode" validate:"required,max=50"`
}

// EnrollRequest enrolls a student into a class by email and subject code.
type EnrollRequest struct {
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	SubjectCode  string `json:"subjectCode" validate:"required,max=50"`
}

// CreateUserRequest creates a student or teacher account.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=student teacher"`
}

// FaceEnrollRequest carries the image a face embedding is computed from.
type FaceEnrollRequest struct {
	Image string `json:"image" validate:"required"`
}

// decodeJSON decodes a body of at most limit bytes into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.Validation("Request body is too large.")
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is required.")
		default:
			return apperr.Validation("Request body must be valid JSON.")
		}
	}
	return validation.ValidateStruct(dst)
}
