// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/middleware"
)

// Router wires handlers to routes and middleware.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil authz middleware skips policy checks.
func NewRouter(handler *Handler, authMw *auth.Middleware, authzMw *authz.Middleware, chiMw *ChiMiddleware) *Router {
	if authMw == nil {
		authMw = auth.NewMiddleware(nil)
	}
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMw,
		authz:         authzMw,
		chiMiddleware: chiMw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight

	r.With(router.chiMiddleware.RateLimitHealth(), APISecurityHeaders()).Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Device-facing routes. The session id is the only credential a
		// phone holds, so these stay outside authentication.
		r.With(router.chiMiddleware.RateLimit()).Get("/ws", h.Channel)
		r.With(
			router.chiMiddleware.RateLimitUpload(),
			APISecurityHeaders(),
			middleware.PrometheusMetrics,
		).Post("/capture/upload/{sessionId}", h.Upload)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(middleware.PrometheusMetrics)
			r.Use(router.auth.Authenticate)
			if router.authz != nil {
				r.Use(router.authz.Authorize)
			}

			r.Get("/capture/session", h.CaptureSession)
			r.Get("/capture/live-session", h.LiveSession)

			r.Post("/live/{sessionId}/recognize", h.RecognizeFrame)
			r.Get("/live/{sessionId}/present", h.PresentSet)

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/", h.ImportAttendance)
				r.Post("/finalize", h.Finalize)
				r.Get("/class/{classId}", h.ClassAttendance)
				r.Get("/export/{classId}", h.ExportAttendance)
				r.Get("/student/{classId}", h.StudentSummary)
				r.Get("/student/{classId}/report", h.StudentReport)
				r.Get("/{id}", h.GetAttendance)
				r.Put("/{id}", h.EditAttendance)
				r.Delete("/{id}", h.DeleteAttendance)
			})

			r.Route("/classes", func(r chi.Router) {
				r.Post("/", h.CreateClass)
				r.Post("/enroll", h.EnrollStudent)
				r.Get("/{classId}/students", h.ClassRoster)
			})

			r.Route("/students", func(r chi.Router) {
				r.Post("/", h.CreateUser)
				r.Post("/{id}/face", h.EnrollFace)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
