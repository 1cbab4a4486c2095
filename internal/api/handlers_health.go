// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
	"time"
)

// HealthStatus reports liveness and the state of the relay.
type HealthStatus struct {
	Status            string  `json:"status"` // healthy or degraded
	DatabaseConnected bool    `json:"database_connected"`
	Connections       int     `json:"connections"`
	Pairings          int     `json:"pairings"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health answers 200 while the process is up. A failed database ping marks
// the service degraded and answers 503.
//
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	health := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		health.Connections = h.hub.ConnectionCount()
		health.Pairings = h.hub.Registry().Len()
	}

	rw := NewResponseWriter(w, r)
	if !dbConnected {
		health.Status = "degraded"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: health, Meta: rw.meta()})
		return
	}
	rw.Success(health)
}
