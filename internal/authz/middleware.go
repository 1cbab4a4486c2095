// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package authz

import (
	"net/http"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/logging"
)

// Middleware enforces the policy on the request path and method.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize must run after auth.Middleware.Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.GetAuthSubject(r.Context())
		if subject == nil {
			writeForbidden(w, "no authentication context")
			return
		}

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Debug().
				Str("subject", subject.ID).Str("role", subject.Role).
				Str("path", r.URL.Path).Str("method", r.Method).
				Msg("Request denied by policy")
			writeForbidden(w, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"FORBIDDEN","message":"` + msg + `"}}`))
}
