// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/validation"
)

// errorStatus maps an error to its HTTP status and envelope code.
// Conflicts are 409 unless conflictStatus overrides it.
func errorStatus(err error, conflictStatus int) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, apperr.ErrConflict):
		return conflictStatus, ErrCodeConflict
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway, ErrCodeUpstreamFailed
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// respondError writes err with its mapped status. Unclassified errors are
// logged and hidden behind a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorConflictAs(w, r, err, http.StatusConflict)
}

// respondErrorConflictAs is respondError with a custom status for conflicts.
func respondErrorConflictAs(w http.ResponseWriter, r *http.Request, err error, conflictStatus int) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}

	status, code := errorStatus(err, conflictStatus)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		rw.InternalError("Server Error")
		return
	}
	if status == http.StatusBadGateway {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Recognition service call failed")
	}
	rw.Error(status, code, apperr.Reason(err))
}
