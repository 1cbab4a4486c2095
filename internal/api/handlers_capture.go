// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/relay"
)

// Device pages the QR payload points at.
const (
	capturePage = "mobile-capture.html"
	livePage    = "mobile-live.html"
)

const (
	qrSize      = 256
	uploadedMsg = "Image uploaded successfully. You can close this window."
)

// PairingResponse is returned when an operator opens a pairing.
type PairingResponse struct {
	SessionID     string    `json:"sessionId"`
	QRPayload     string    `json:"qrPayload"`
	QRCodeDataURL string    `json:"qrCodeDataUrl"`
	ClassID       string    `json:"classId,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// CaptureSession opens a single-shot enrollment pairing.
//
// GET /api/v1/capture/session
func (h *Handler) CaptureSession(w http.ResponseWriter, r *http.Request) {
	h.openPairing(w, r, relay.RoleCapture, "", capturePage)
}

// LiveSession opens a live attendance pairing for the classId query parameter.
//
// GET /api/v1/capture/live-session?classId=
func (h *Handler) LiveSession(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")
	if classID != "" {
		if _, err := h.db.GetClass(r.Context(), classID); err != nil {
			respondError(w, r, err)
			return
		}
	}
	h.openPairing(w, r, relay.RoleLive, classID, livePage)
}

func (h *Handler) openPairing(w http.ResponseWriter, r *http.Request, role relay.Role, classID, page string) {
	ticket, err := h.tickets.Issue(r.Context(), role, classID, subject(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload := devicePageURL(h.relayCfg.FrontendBaseURL, page, ticket.SessionID)
	dataURL, err := qrDataURL(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("session_id", ticket.SessionID).
		Str("role", string(role)).
		Str("class_id", classID).
		Msg("Pairing opened")

	NewResponseWriter(w, r).Success(PairingResponse{
		SessionID:     ticket.SessionID,
		QRPayload:     payload,
		QRCodeDataURL: dataURL,
		ClassID:       classID,
		ExpiresAt:     ticket.ExpiresAt,
	})
}

// devicePageURL is <base>/<page>?sessionId=<id>.
func devicePageURL(base, page, sessionID string) string {
	return strings.TrimRight(base, "/") + "/" + page + "?sessionId=" + url.QueryEscape(sessionID)
}

// qrDataURL renders payload as a PNG QR code data URL.
func qrDataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Upload relays a device's single-shot capture to the paired operator.
// The route is unauthenticated; the session id is the capability.
//
// POST /api/v1/capture/upload/{sessionId}
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if !relay.ValidSessionID(sessionID) {
		NewResponseWriter(w, r).NotFound(relay.ReasonSessionNotFound)
		return
	}

	var req UploadRequest
	if err := decodeJSON(w, r, h.imageBodyLimit(), &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.hub.DeliverUpload(sessionID, req.Image); err != nil {
		if apperr.KindOf(err) == apperr.ErrNotFound {
			NewResponseWriter(w, r).NotFound(relay.ReasonSessionNotFound)
			return
		}
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Message(uploadedMsg)
}

// Channel upgrades to the bidirectional relay channel.
//
// GET /api/v1/ws
func (h *Handler) Channel(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeHTTP(w, r)
}
