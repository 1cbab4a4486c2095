// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/database"
	"github.com/tomtom215/rollcall/internal/export"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/recognition"
	"github.com/tomtom215/rollcall/internal/relay"
)

// Body limits. Image bodies are bounded by the relay message size.
const defaultBodyLimit = 1 << 20

// TicketIssuer issues pairing ids over HTTP.
type TicketIssuer interface {
	Issue(ctx context.Context, role relay.Role, classID, issuedBy string) (*relay.Ticket, error)
}

// FaceEnroller computes and de-duplicates face embeddings.
type FaceEnroller interface {
	Embedding(ctx context.Context, image string) ([]float32, error)
	CheckDuplicate(ctx context.Context, embedding []float32, known []models.FaceEmbedding) (*recognition.Duplicate, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_capture.go: pairing creation and device uploads
//   - handlers_live.go: live recognition and the present set
//   - handlers_attendance.go: finalize, import, edit, delete, reports, export
//   - handlers_classes.go: classes, rosters, users and face enrollment
//   - handlers_health.go: liveness
type Handler struct {
	db         *database.DB
	attendance *attendance.Service
	exporter   *export.Exporter
	hub        *relay.Hub
	tickets    TicketIssuer
	recognizer *recognition.Recognizer
	faces      FaceEnroller
	relayCfg   config.RelayConfig
	startTime  time.Time
}

// Deps are the collaborators of a Handler. Recognizer and Faces may be nil,
// in which case the recognition endpoints answer 503.
type Deps struct {
	DB         *database.DB
	Attendance *attendance.Service
	Exporter   *export.Exporter
	Hub        *relay.Hub
	Tickets    TicketIssuer
	Recognizer *recognition.Recognizer
	Faces      FaceEnroller
	Relay      config.RelayConfig
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		db:         d.DB,
		attendance: d.Attendance,
		exporter:   d.Exporter,
		hub:        d.Hub,
		tickets:    d.Tickets,
		recognizer: d.Recognizer,
		faces:      d.Faces,
		relayCfg:   d.Relay,
		startTime:  time.Now(),
	}
}

// imageBodyLimit bounds request bodies that carry a base64 image.
func (h *Handler) imageBodyLimit() int64 {
	if h.relayCfg.MaxMessageSize > 0 {
		return h.relayCfg.MaxMessageSize
	}
	return 10 << 20
}

// subject returns the authenticated caller, or the anonymous operator when
// authentication is disabled.
func subject(r *http.Request) *auth.AuthSubject {
	if s := auth.GetAuthSubject(r.Context()); s != nil {
		return s
	}
	anon := auth.AnonymousSubject
	return &anon
}

// studentScope resolves whose records a student-scoped request reads: the
// caller itself, or for operators the studentId query parameter.
func studentScope(r *http.Request) (string, bool) {
	s := subject(r)
	if s.Role == auth.RoleStudent {
		return s.ID, true
	}
	id := r.URL.Query().Get("studentId")
	return id, id != ""
}
