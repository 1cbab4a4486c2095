// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package services adapts Rollcall components to suture.Service.
//
//   - HTTPServerService: ListenAndServe plus graceful Shutdown
//   - RelayHubService: the relay hub's RunWithContext
//   - EventBusService: the watermill router behind the event bus
//
// Each wrapper implements fmt.Stringer so supervisor logs name it.
package services
