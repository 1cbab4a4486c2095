// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/config"
)

// tokenOptions are the parsed arguments of the token command.
type tokenOptions struct {
	UserID string
	Name   string
	Role   string
	TTL    time.Duration
}

func parseTokenArgs(args []string, stderr io.Writer) (tokenOptions, error) {
	var opts tokenOptions
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.UserID, "user", "", "user ID placed in the token subject (required)")
	fs.StringVar(&opts.Name, "name", "", "display name")
	fs.StringVar(&opts.Role, "role", auth.RoleTeacher, "role: teacher, student or admin")
	fs.DurationVar(&opts.TTL, "ttl", 0, "token lifetime (defaults to SESSION_TIMEOUT)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.UserID == "" {
		return opts, errors.New("-user is required")
	}
	switch opts.Role {
	case auth.RoleTeacher, auth.RoleStudent, auth.RoleAdmin:
	default:
		return opts, fmt.Errorf("unknown role %q", opts.Role)
	}
	if opts.TTL < 0 {
		return opts, errors.New("-ttl must be positive")
	}
	return opts, nil
}

// runToken prints a signed operator token for local use and scripting.
func runToken(args []string, stdout, stderr io.Writer) int {
	opts, err := parseTokenArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "token:", err)
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "token: load configuration:", err)
		return 1
	}
	return signToken(&cfg.Security, opts, stdout, stderr)
}

func signToken(sec *config.SecurityConfig, opts tokenOptions, stdout, stderr io.Writer) int {
	if opts.TTL > 0 {
		sec.SessionTimeout = opts.TTL
	}
	manager, err := auth.NewJWTManager(sec)
	if err != nil {
		fmt.Fprintln(stderr, "token: set JWT_SECRET to sign tokens:", err)
		return 1
	}
	token, err := manager.GenerateToken(opts.UserID, opts.Name, opts.Role)
	if err != nil {
		fmt.Fprintln(stderr, "token:", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
