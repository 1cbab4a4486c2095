// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package config loads Rollcall configuration from defaults, an optional YAML
// file and environment variables (in that order of precedence, lowest first).
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Sections:
//   - Server: HTTP listener
//   - Database: DuckDB attendance store
//   - Relay: pairing registry, channel limits and QR URL templates
//   - Recognition: upstream face recognition service
//   - Attendance: edit window and day boundaries
//   - Security: JWT operator auth, CORS, rate limits
//   - Events: domain event transport
//   - Logging: log level and format
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Relay       RelayConfig       `koanf:"relay"`
	Recognition RecognitionConfig `koanf:"recognition"`
	Attendance  AttendanceConfig  `koanf:"attendance"`
	Security    SecurityConfig    `koanf:"security"`
	Events      EventsConfig      `koanf:"events"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
}

// RelayConfig holds pairing and channel settings.
type RelayConfig struct {
	// FrontendBaseURL prefixes the capture URLs encoded into QR payloads.
	FrontendBaseURL string `koanf:"frontend_base_url"`

	// RegistrationTimeout closes channels that never send a registration message.
	RegistrationTimeout time.Duration `koanf:"registration_timeout"`

	// TicketTTL expires pairing tickets issued over HTTP that are never registered.
	TicketTTL time.Duration `koanf:"ticket_ttl"`

	// SendBuffer is the per-channel outbound buffer length.
	SendBuffer int `koanf:"send_buffer"`

	// MaxMessageSize caps a single inbound channel message in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// RecognizeFrames runs recognition on relayed live frames server-side.
	RecognizeFrames bool `koanf:"recognize_frames"`
}

// RecognitionConfig holds upstream recognition service settings.
type RecognitionConfig struct {
	URL             string        `koanf:"url"`
	Timeout         time.Duration `koanf:"timeout"`
	RatePerSecond   float64       `koanf:"rate_per_second"`
	Burst           int           `koanf:"burst"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
	// FaceCacheTTL bounds how long roster faces are reused across frames.
	FaceCacheTTL time.Duration `koanf:"face_cache_ttl"`
}

// AttendanceConfig holds finalization and edit policy settings.
type AttendanceConfig struct {
	// Timezone is the IANA location used to truncate record dates to days.
	Timezone string `koanf:"timezone"`

	// EditWindowDays is the number of calendar days a record stays mutable.
	EditWindowDays int `koanf:"edit_window_days"`
}

// Location resolves Timezone, falling back to time.Local.
func (a AttendanceConfig) Location() *time.Location {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SecurityConfig holds authentication, CORS and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret enables bearer-token operator auth when non-empty.
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// UploadRateLimitReqs applies to the unauthenticated capture upload path.
	UploadRateLimitReqs int  `koanf:"upload_rate_limit_reqs"`
	RateLimitDisabled   bool `koanf:"rate_limit_disabled"`
	// PolicyPath overrides the embedded casbin policy.
	PolicyPath string `koanf:"policy_path"`
}

// AuthEnabled reports whether operator endpoints require a bearer token.
func (s SecurityConfig) AuthEnabled() bool {
	return s.JWTSecret != ""
}

// EventsConfig holds domain event transport settings.
type EventsConfig struct {
	// NATSURL is only used by builds with the nats tag.
	NATSURL string `koanf:"nats_url"`
	// EmbeddedNATS starts an in-process NATS server instead of dialing NATSURL.
	EmbeddedNATS bool `koanf:"embedded_nats"`
	// Topic receives attendance lifecycle events.
	Topic string `koanf:"topic"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format"`

	// Caller includes caller file:line in log output.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
