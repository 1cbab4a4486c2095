// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package main is the entry point for the Rollcall server.

Rollcall pairs operator consoles with phones over a WebSocket relay, turns
relayed or uploaded camera frames into a live present set through an external
face recognition service, and reconciles that set against class rosters into
one attendance record per class and day.

# Application Architecture

	RootSupervisor ("rollcall")
	├── EventsSupervisor ("events-layer")
	│   └── Event bus consumer (watermill; NATS with -tags nats)
	├── RelaySupervisor ("relay-layer")
	│   └── Relay hub (pairing registry and channels)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Component initialization order:

 1. Configuration: koanf v2 from defaults, config.yaml and environment
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB attendance store
 4. Recognition: HTTP client with rate limit and circuit breaker
 5. Relay: ticket store (BadgerDB in memory), registry and hub
 6. Events: watermill bus feeding the attendance audit trail
 7. Attendance service and export builder
 8. Authentication (JWT) and authorization (casbin)
 9. Supervisor tree and HTTP server

# Commands

	rollcall                 run the server
	rollcall token -user ID -role teacher [-name NAME] [-ttl 24h]
	                         print a signed operator token (needs JWT_SECRET)

# Configuration

Common environment variables:

	HTTP_PORT                 listen port (default 5001)
	DUCKDB_PATH               database file
	FRONTEND_URL              base URL encoded into pairing QR codes
	AI_SERVICE_URL            face recognition service
	ATTENDANCE_TIMEZONE       IANA zone that defines calendar days
	JWT_SECRET                enables operator authentication
	NATS_URL / NATS_EMBEDDED  event transport (-tags nats)

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
10s, the hub closes every channel, and the event router stops.
*/
package main
