// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/models"
)

// CreateClass creates a class taught by the caller.
//
// POST /api/v1/classes
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	class := &models.Class{
		SubjectName: req.SubjectName,
		SubjectCode: req.SubjectCode,
		TeacherID:   subject(r).ID,
	}
	if err := h.db.CreateClass(r.Context(), class); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(class)
}

// EnrollStudent appends a student, found by email, to the roster of the class
// with the given subject code.
//
// POST /api/v1/classes/enroll
func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	student, err := h.db.GetUserByEmail(ctx, req.StudentEmail)
	if err != nil {
		respondError(w, r, err)
		return
	}
	class, err := h.db.GetClassByCode(ctx, req.SubjectCode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.db.EnrollStudent(ctx, class.ID, student.ID); err != nil {
		respondError(w, r, err)
		return
	}
	if h.recognizer != nil {
		h.recognizer.ForgetFaces(class.ID)
	}

	class, err = h.db.GetClass(ctx, class.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().Str("class_id", class.ID).Str("student_id", student.ID).Msg("Student enrolled")
	NewResponseWriter(w, r).Success(class)
}

// ClassRoster lists a class's students with their face-enrolled flag.
//
// GET /api/v1/classes/{classId}/students
func (h *Handler) ClassRoster(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	if _, err := h.db.GetClass(r.Context(), classID); err != nil {
		respondError(w, r, err)
		return
	}
	roster, err := h.db.Roster(r.Context(), classID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if roster == nil {
		roster = []models.Student{}
	}
	NewResponseWriter(w, r).List(roster, len(roster))
}

// CreateUser creates a student or teacher account.
//
// POST /api/v1/students
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user := &models.User{Name: req.Name, Email: req.Email, Role: models.Role(req.Role)}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(user)
}

// EnrollFace stores a student's face embedding after checking that the face
// is not already enrolled for someone else. Students may only enroll
// themselves.
//
// POST /api/v1/students/{id}/face
func (h *Handler) EnrollFace(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Recognition is not configured.")
		return
	}

	userID := chi.URLParam(r, "id")
	if s := subject(r); s.Role == auth.RoleStudent && s.ID != userID {
		respondError(w, r, apperr.Forbidden("Students can only enroll their own face."))
		return
	}

	var req FaceEnrollRequest
	if err := decodeJSON(w, r, h.imageBodyLimit(), &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := h.db.GetUser(ctx, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	embedding, err := h.faces.Embedding(ctx, req.Image)
	if err != nil {
		respondError(w, r, err)
		return
	}
	known, err := h.db.ListEmbeddings(ctx, user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	dup, err := h.faces.CheckDuplicate(ctx, embedding, known)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if dup.IsDuplicate {
		respondError(w, r, apperr.Conflict(fmt.Sprintf(
			"Enrollment failed: This face is already registered with student: %s (%s)",
			dup.Student.Name, dup.Student.StudentID)))
		return
	}

	if err := h.db.SetFaceEmbedding(ctx, user.ID, embedding); err != nil {
		respondError(w, r, err)
		return
	}
	if h.recognizer != nil {
		h.recognizer.ForgetFaces()
	}
	logging.Ctx(ctx).Info().Str("student_id", user.ID).Int("dims", len(embedding)).Msg("Face enrolled")
	NewResponseWriter(w, r).Message(fmt.Sprintf("Face for %s enrolled successfully!", user.Name))
}
