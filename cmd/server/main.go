// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/rollcall/internal/api"
	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/database"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/export"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/recognition"
	"github.com/tomtom215/rollcall/internal/relay"
	"github.com/tomtom215/rollcall/internal/supervisor"
	"github.com/tomtom215/rollcall/internal/supervisor/services"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(runToken(os.Args[2:], os.Stdout, os.Stderr))
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Rollcall stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential setup steps
func run(cfg *config.Config) error {
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("recognition_url", cfg.Recognition.URL).
		Bool("auth_enabled", cfg.Security.AuthEnabled()).
		Str("timezone", cfg.Attendance.Location().String()).
		Int("edit_window_days", cfg.Attendance.EditWindowDays).
		Msg("Starting Rollcall")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	client := recognition.NewClient(cfg.Recognition)
	var faces recognition.FaceSource = db
	if ttl := cfg.Recognition.FaceCacheTTL; ttl > 0 {
		cached := recognition.NewCachedFaces(db, ttl)
		defer cached.Close()
		faces = cached
	}
	recognizer := recognition.NewRecognizer(client, faces)

	tickets, err := relay.NewTicketStore(cfg.Relay.TicketTTL)
	if err != nil {
		return err
	}
	defer func() { _ = tickets.Close() }()

	hubOpts := []relay.Option{relay.WithAllowedOrigins(cfg.Security.CORSOrigins)}
	if cfg.Relay.RecognizeFrames {
		hubOpts = append(hubOpts, relay.WithRecognizer(recognizer))
		logging.Info().Msg("Server-side recognition of relayed frames enabled")
	}
	hub := relay.NewHub(relay.NewRegistry(), tickets, cfg.Relay, hubOpts...)
	defer hub.Close()

	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	service := attendance.NewService(db, cfg.Attendance, attendance.WithPublisher(bus))
	exporter := export.NewExporter(db, cfg.Attendance.Location())

	var authMw *auth.Middleware
	var authzMw *authz.Middleware
	if cfg.Security.AuthEnabled() {
		jwtManager, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return err
		}
		enforcer, err := authz.NewEnforcer(cfg.Security.PolicyPath)
		if err != nil {
			return err
		}
		authMw = auth.NewMiddleware(jwtManager)
		authzMw = authz.NewMiddleware(enforcer)
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is DISABLED (JWT_SECRET unset); operator endpoints are open")
	}

	handler := api.NewHandler(api.Deps{
		DB:         db,
		Attendance: service,
		Exporter:   exporter,
		Hub:        hub,
		Tickets:    tickets,
		Recognizer: recognizer,
		Faces:      client,
		Relay:      cfg.Relay,
	})
	router := api.NewRouter(handler, authMw, authzMw, api.NewChiMiddlewareFromConfig(cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		// Relay channels set their own read and write deadlines.
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddEventService(services.NewEventBusService(bus))
	tree.AddRelayService(services.NewRelayHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
		runErr = <-errCh
	case runErr = <-errCh:
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	return runErr
}
