// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Validate checks the loaded configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateAttendance(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateRelay() error {
	u, err := url.Parse(c.Relay.FrontendBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FRONTEND_BASE_URL must be an absolute URL, got %q", c.Relay.FrontendBaseURL)
	}
	if c.Relay.RegistrationTimeout <= 0 {
		return fmt.Errorf("RELAY_REGISTRATION_TIMEOUT must be positive")
	}
	if c.Relay.TicketTTL < c.Relay.RegistrationTimeout {
		return fmt.Errorf("RELAY_TICKET_TTL must be at least RELAY_REGISTRATION_TIMEOUT")
	}
	if c.Relay.SendBuffer < 1 {
		return fmt.Errorf("RELAY_SEND_BUFFER must be at least 1")
	}
	if c.Relay.MaxMessageSize < 1024 {
		return fmt.Errorf("RELAY_MAX_MESSAGE_SIZE must be at least 1024 bytes")
	}
	return nil
}

// validateRecognition enforces the 1s..30s bound on upstream calls so a hung
// recognition service can never stall a live session indefinitely.
func (c *Config) validateRecognition() error {
	if c.Recognition.URL == "" {
		return fmt.Errorf("AI_SERVICE_URL is required")
	}
	if !strings.HasPrefix(c.Recognition.URL, "http://") && !strings.HasPrefix(c.Recognition.URL, "https://") {
		return fmt.Errorf("AI_SERVICE_URL must use http or https")
	}
	if c.Recognition.Timeout < time.Second || c.Recognition.Timeout > 30*time.Second {
		return fmt.Errorf("RECOGNITION_TIMEOUT must be between 1s and 30s")
	}
	if c.Recognition.RatePerSecond <= 0 {
		return fmt.Errorf("RECOGNITION_RATE_PER_SECOND must be positive")
	}
	if c.Recognition.Burst < 1 {
		return fmt.Errorf("RECOGNITION_BURST must be at least 1")
	}
	if c.Recognition.BreakerFailures == 0 {
		return fmt.Errorf("RECOGNITION_BREAKER_FAILURES must be at least 1")
	}
	if c.Recognition.FaceCacheTTL < 0 {
		return fmt.Errorf("RECOGNITION_FACE_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateAttendance() error {
	if c.Attendance.EditWindowDays < 1 {
		return fmt.Errorf("ATTENDANCE_EDIT_WINDOW_DAYS must be at least 1")
	}
	if tz := c.Attendance.Timezone; tz != "" && tz != "Local" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("ATTENDANCE_TIMEZONE %q is not a valid IANA location: %w", tz, err)
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Server.Environment == "production" {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENVIRONMENT=production")
		}
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS cannot contain wildcard '*' when ENVIRONMENT=production")
			}
		}
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 || c.Security.UploadRateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
