// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rollcall/config.yaml",
	"/etc/rollcall/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        5001,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/rollcall.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Relay: RelayConfig{
			FrontendBaseURL:     "https://localhost:3000",
			RegistrationTimeout: 30 * time.Second,
			TicketTTL:           10 * time.Minute,
			SendBuffer:          64,
			MaxMessageSize:      10 << 20, // frames are base64 JPEGs
			RecognizeFrames:     false,
		},
		Recognition: RecognitionConfig{
			URL:             "http://127.0.0.1:5000",
			Timeout:         8 * time.Second,
			RatePerSecond:   10,
			Burst:           5,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
			FaceCacheTTL:    30 * time.Second,
		},
		Attendance: AttendanceConfig{
			Timezone:       "Local",
			EditWindowDays: 3,
		},
		Security: SecurityConfig{
			JWTSecret:           "",
			SessionTimeout:      24 * time.Hour,
			CORSOrigins:         []string{"*"},
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			UploadRateLimitReqs: 30,
			RateLimitDisabled:   false,
		},
		Events: EventsConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "attendance.events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"port":         "server.port",
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Relay
	"frontend_base_url":          "relay.frontend_base_url",
	"relay_registration_timeout": "relay.registration_timeout",
	"relay_ticket_ttl":           "relay.ticket_ttl",
	"relay_send_buffer":          "relay.send_buffer",
	"relay_max_message_size":     "relay.max_message_size",
	"relay_recognize_frames":     "relay.recognize_frames",

	// Recognition
	"ai_service_url":               "recognition.url",
	"recognition_url":              "recognition.url",
	"recognition_timeout":          "recognition.timeout",
	"recognition_rate_per_second":  "recognition.rate_per_second",
	"recognition_burst":            "recognition.burst",
	"recognition_breaker_failures": "recognition.breaker_failures",
	"recognition_breaker_cooldown": "recognition.breaker_cooldown",
	"recognition_face_cache_ttl":   "recognition.face_cache_ttl",

	// Attendance
	"attendance_timezone":         "attendance.timezone",
	"attendance_edit_window_days": "attendance.edit_window_days",

	// Security
	"jwt_secret":             "security.jwt_secret",
	"session_timeout":        "security.session_timeout",
	"cors_origins":           "security.cors_origins",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"upload_rate_limit_reqs": "security.upload_rate_limit_reqs",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"policy_path":            "security.policy_path",

	// Events
	"nats_url":      "events.nats_url",
	"nats_embedded": "events.embedded_nats",
	"events_topic":  "events.topic",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are ignored.
//
// Examples:
//   - AI_SERVICE_URL -> recognition.url
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
