// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/recognition"
)

// reasonClassMismatch is returned when a frame names a class other than the
// one the live session is bound to.
const reasonClassMismatch = "Session is bound to a different class."

// LiveResponse is the state of a live session after a frame.
type LiveResponse struct {
	Recognized          []recognition.Result `json:"recognized_students"`
	Present             []recognition.Result `json:"present"`
	ConsecutiveFailures int                  `json:"consecutiveFailures"`
	ClassID             string               `json:"classId"`
}

// RecognizeFrame runs recognition on one frame and merges the result into
// the session's present set. A failed upstream call is not an error: the
// frame is skipped and the failure counter grows.
//
// POST /api/v1/live/{sessionId}/recognize
func (h *Handler) RecognizeFrame(w http.ResponseWriter, r *http.Request) {
	if h.recognizer == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Recognition is not configured.")
		return
	}

	sess, err := h.hub.LiveSession(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req RecognizeRequest
	if err := decodeJSON(w, r, h.imageBodyLimit(), &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ClassID != "" && !sess.BindClass(req.ClassID) {
		respondError(w, r, apperr.Validation(reasonClassMismatch))
		return
	}
	if sess.ClassID() == "" {
		respondError(w, r, apperr.Validation("classId is required"))
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), chi.URLParam(r, "sessionId"))
	results := h.recognizer.RecognizeFrame(ctx, sess, req.Image)
	if results == nil {
		results = []recognition.Result{}
	}

	NewResponseWriter(w, r).Success(liveState(sess, results))
}

// PresentSet returns the session's present set without touching it.
//
// GET /api/v1/live/{sessionId}/present
func (h *Handler) PresentSet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.hub.LiveSession(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(liveState(sess, []recognition.Result{}))
}

func liveState(sess *recognition.LiveSession, recognized []recognition.Result) LiveResponse {
	present := sess.Accumulator().Entries()
	if present == nil {
		present = []recognition.Result{}
	}
	return LiveResponse{
		Recognized:          recognized,
		Present:             present,
		ConsecutiveFailures: sess.ConsecutiveFailures(),
		ClassID:             sess.ClassID(),
	}
}
