// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/export"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/models"
)

const (
	recordRemovedMsg   = "Attendance record removed"
	reasonStudentScope = "studentId is required"
)

// FinalizeResponse confirms a new record.
type FinalizeResponse struct {
	Message    string                   `json:"message"`
	Attendance *models.AttendanceRecord `json:"attendance"`
}

// AttendanceView is a record with names resolved and its lifecycle state.
type AttendanceView struct {
	*models.AttendanceDetail
	State    string `json:"state"`
	Editable bool   `json:"editable"`
}

// AbsenceReport lists the days a student was absent, oldest first.
type AbsenceReport struct {
	AbsentDates []string `json:"absentDates"`
}

// Finalize commits today's record for a class. When sessionId names a live
// session its present set is merged with presentStudents and released once
// the record is saved. A second finalize for the same day answers 400 with
// the CONFLICT code.
//
// POST /api/v1/attendance/finalize
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	present := req.PresentStudents
	var drain func()
	if req.SessionID != "" {
		sess, err := h.hub.LiveSession(req.SessionID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if !sess.BindClass(req.ClassID) {
			respondError(w, r, apperr.Validation(reasonClassMismatch))
			return
		}
		present = attendance.Union(present, sess.Accumulator().Snapshot())
		drain = func() { sess.Accumulator().Drain() }
	}

	rec, err := h.attendance.Finalize(r.Context(), req.ClassID, present)
	if err != nil {
		respondErrorConflictAs(w, r, err, http.StatusBadRequest)
		return
	}
	if drain != nil {
		drain()
	}

	NewResponseWriter(w, r).Success(FinalizeResponse{
		Message:    attendance.FinalizeMessage(rec),
		Attendance: rec,
	})
}

// ImportAttendance creates a record for an arbitrary day.
//
// POST /api/v1/attendance
func (h *Handler) ImportAttendance(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	date, err := time.ParseInLocation(attendance.DayLayout, req.Date, h.attendance.Location())
	if err != nil {
		respondError(w, r, apperr.Validation("date must be a date as YYYY-MM-DD"))
		return
	}
	// Noon keeps the day stable under any later zone conversion.
	date = date.Add(12 * time.Hour)

	rec, err := h.attendance.Import(r.Context(), req.ClassID, date, req.PresentStudents)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(rec)
}

// GetAttendance returns a record with student names.
//
// GET /api/v1/attendance/{id}
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.attendance.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	detail, err := h.attendance.GetDetail(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(AttendanceView{
		AttendanceDetail: detail,
		State:            h.attendance.StateOf(rec).String(),
		Editable:         h.attendance.Editable(rec),
	})
}

// EditAttendance replaces a record's present set inside the edit window.
//
// PUT /api/v1/attendance/{id}
func (h *Handler) EditAttendance(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := decodeJSON(w, r, defaultBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := h.attendance.Edit(r.Context(), chi.URLParam(r, "id"), req.PresentStudents)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(rec)
}

// DeleteAttendance removes a record inside the edit window.
//
// DELETE /api/v1/attendance/{id}
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	if err := h.attendance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Message(recordRemovedMsg)
}

// ClassAttendance lists a class's records, newest first.
//
// GET /api/v1/attendance/class/{classId}
func (h *Handler) ClassAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := h.attendance.ListByClass(r.Context(), chi.URLParam(r, "classId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	NewResponseWriter(w, r).List(records, len(records))
}

// StudentSummary returns a student's totals for a class.
//
// GET /api/v1/attendance/student/{classId}
func (h *Handler) StudentSummary(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentScope(r)
	if !ok {
		respondError(w, r, apperr.Validation(reasonStudentScope))
		return
	}
	summary, err := h.attendance.StudentSummary(r.Context(), chi.URLParam(r, "classId"), studentID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(summary)
}

// StudentReport lists the days a student was absent.
//
// GET /api/v1/attendance/student/{classId}/report
func (h *Handler) StudentReport(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentScope(r)
	if !ok {
		respondError(w, r, apperr.Validation(reasonStudentScope))
		return
	}
	days, err := h.attendance.AbsentDays(r.Context(), chi.URLParam(r, "classId"), studentID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if days == nil {
		days = []string{}
	}
	NewResponseWriter(w, r).Success(AbsenceReport{AbsentDates: days})
}

// ExportAttendance renders a class's attendance pivot as a spreadsheet.
// The file is rendered fully before any byte is sent so a render failure
// still produces a JSON error.
//
// GET /api/v1/attendance/export/{classId}?startDate=&endDate=&format=
func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		respondError(w, r, apperr.Validation(err.Error()))
		return
	}

	report, err := h.exporter.Build(r.Context(), chi.URLParam(r, "classId"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report.Grid, format, report.SheetTitle()); err != nil {
		respondError(w, r, err)
		return
	}

	filename := report.Filename(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("filename", filename).Msg("Export write interrupted")
	}
}
