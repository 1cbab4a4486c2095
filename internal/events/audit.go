// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

// audit records one consumed event. Undecodable payloads are acked and
// dropped; observer errors trigger the retry middleware.
func (b *Bus) audit(msg *message.Message) error {
	var event attendance.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable attendance event")
		return nil
	}

	metrics.AttendanceEvents.WithLabelValues(string(event.Kind)).Inc()
	logging.Info().
		Str("component", "audit").
		Str("kind", string(event.Kind)).
		Str("record_id", event.RecordID).
		Str("class_id", event.ClassID).
		Str("day", event.Day).
		Int("present", event.Present).
		Int("absent", event.Absent).
		Str("request_id", msg.Metadata.Get("request_id")).
		Msg("Attendance event")

	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()
	for _, o := range observers {
		if err := o(msg.Context(), event); err != nil {
			return err
		}
	}
	return nil
}
