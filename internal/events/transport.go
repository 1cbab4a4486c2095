// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

//go:build !nats

package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/rollcall/internal/config"
)

// newTransport always uses the in-process channel; NATS needs the nats build tag.
func newTransport(_ config.EventsConfig, logger watermill.LoggerAdapter) (transport, error) {
	return newGoChannel(logger), nil
}
