// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package supervisor runs the long-lived parts of Rollcall under suture v4.

The tree has three layers, each restarted independently:

	RootSupervisor ("rollcall")
	├── EventsSupervisor ("events-layer")
	│   └── EventBusService
	├── RelaySupervisor ("relay-layer")
	│   └── RelayHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (starts, failures, backoff) are logged through sutureslog
with the zerolog-backed slog handler from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddEventService(services.NewEventBusService(bus))
	tree.AddRelayService(services.NewRelayHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Canceling ctx stops every layer. Services still running after
ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
