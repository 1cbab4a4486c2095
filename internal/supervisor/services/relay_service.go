// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package services

import (
	"context"
)

// ContextHub is satisfied by *relay.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// RelayHubService supervises the relay hub. When its context ends the hub
// closes every open channel, which drops their pairings.
type RelayHubService struct {
	hub  ContextHub
	name string
}

func NewRelayHubService(hub ContextHub) *RelayHubService {
	return &RelayHubService{hub: hub, name: "relay-hub"}
}

// Serve implements suture.Service.
func (r *RelayHubService) Serve(ctx context.Context) error {
	return r.hub.RunWithContext(ctx)
}

func (r *RelayHubService) String() string {
	return r.name
}
