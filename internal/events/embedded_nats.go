// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

//go:build nats

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// embeddedNATS is a loopback core NATS server for single-process deployments.
type embeddedNATS struct {
	server *server.Server
}

// startEmbeddedNATS starts a server on a random loopback port and waits until
// it accepts clients.
func startEmbeddedNATS() (*embeddedNATS, error) {
	opts := &server.Options{
		ServerName: "rollcall-events",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1 << 20,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server not ready within timeout")
	}
	return &embeddedNATS{server: ns}, nil
}

func (e *embeddedNATS) ClientURL() string {
	return e.server.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *embeddedNATS) Shutdown() error {
	e.server.Shutdown()
	e.server.WaitForShutdown()
	return nil
}
