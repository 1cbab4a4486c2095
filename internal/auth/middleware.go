// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package auth

import (
	"net/http"
	"strings"

	"github.com/tomtom215/rollcall/internal/logging"
)

// Middleware authenticates requests and stores the AuthSubject in the context.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware creates the middleware. A nil manager disables authentication.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwt: jwtManager}
}

// Enabled reports whether tokens are checked.
func (m *Middleware) Enabled() bool {
	return m.jwt != nil
}

// Authenticate rejects requests without a valid bearer token with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.jwt == nil {
			anon := AnonymousSubject
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), &anon)))
			return
		}

		token, err := extractToken(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			writeUnauthorized(w, "invalid token")
			return
		}

		subject := &AuthSubject{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// extractToken reads the Authorization header, falling back to the token cookie.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value == "" {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidCredentials
	}
	return token, nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="rollcall"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"` + msg + `"}}`))
}
