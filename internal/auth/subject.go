// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package auth authenticates operators with HS256 bearer tokens and carries
// the resulting subject through the request context.
//
// Authentication is optional: with no security.jwt_secret configured every
// request runs as the anonymous teacher subject.
package auth

import (
	"context"
	"errors"
)

// Roles carried in tokens and checked by the authorization policy.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Authentication errors.
var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthSubject is the authenticated caller.
type AuthSubject struct {
	ID   string
	Name string
	Role string
	// Anonymous is set when authentication is disabled.
	Anonymous bool
}

// IsTeacher reports whether the subject may operate classes.
func (s *AuthSubject) IsTeacher() bool {
	return s != nil && (s.Role == RoleTeacher || s.Role == RoleAdmin)
}

// AnonymousSubject is used for every request when auth is disabled.
var AnonymousSubject = AuthSubject{ID: "anonymous", Role: RoleTeacher, Anonymous: true}

type contextKey string

const subjectContextKey contextKey = "auth-subject"

// ContextWithSubject returns ctx carrying s.
func ContextWithSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// GetAuthSubject returns the subject stored by the middleware, or nil.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	s, _ := ctx.Value(subjectContextKey).(*AuthSubject)
	return s
}
