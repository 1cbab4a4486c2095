// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func newGoChannel(logger watermill.LoggerAdapter) transport {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return transport{pub: ch, sub: ch, name: "gochannel", close: ch.Close}
}
