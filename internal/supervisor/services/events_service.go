// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventRunner is satisfied by *events.Bus.
type EventRunner interface {
	Run(ctx context.Context) error
}

// EventBusService supervises the attendance event consumer. A router that
// exits while its context is live is reported as a failure so suture
// restarts it.
type EventBusService struct {
	bus  EventRunner
	name string
}

// NewEventBusService wraps bus.
func NewEventBusService(bus EventRunner) *EventBusService {
	return &EventBusService{bus: bus, name: "event-bus"}
}

// Serve implements suture.Service.
func (e *EventBusService) Serve(ctx context.Context) error {
	err := e.bus.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router stopped")
	}
	return fmt.Errorf("event bus: %w", err)
}

func (e *EventBusService) String() string {
	return e.name
}
