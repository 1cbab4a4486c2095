// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package events carries attendance lifecycle events over Watermill.
//
// The default build uses an in-process gochannel transport. Builds with the
// nats tag publish to NATS when events.nats_url is set, so other services can
// follow finalize, edit, import and delete transitions.
//
// A router consumes the topic and writes an audit trail (structured log and
// the attendance_events_total counter). Observers can be attached for further
// processing.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/logging"
)

// Metadata keys set on every message.
const (
	MetadataKind    = "kind"
	MetadataClassID = "class_id"
)

const auditHandlerName = "attendance-audit"

// Observer is called for every consumed event after it is audited.
type Observer func(ctx context.Context, event attendance.Event) error

// transport is a publisher/subscriber pair plus the resources behind it.
type transport struct {
	pub   message.Publisher
	sub   message.Subscriber
	name  string
	close func() error
}

// Bus publishes attendance events and runs the consuming router.
type Bus struct {
	transport transport
	topic     string
	logger    watermill.LoggerAdapter
	router    *message.Router

	mu        sync.RWMutex
	observers []Observer
	closed    bool
	// started is set once Run hands control to the router.
	started bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver adds an observer to the audit handler.
func WithObserver(o Observer) Option {
	return func(b *Bus) { b.observers = append(b.observers, o) }
}

// NewBus creates the transport selected by cfg and the audit router.
func NewBus(cfg config.EventsConfig, opts ...Option) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	topic := cfg.Topic
	if topic == "" {
		topic = "attendance.events"
	}

	t, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}

	b := &Bus{transport: t, topic: topic, logger: logger}
	for _, opt := range opts {
		opt(b)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		_ = t.close()
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)
	router.AddConsumerHandler(auditHandlerName, topic, t.sub, b.audit)
	b.router = router

	logging.Info().Str("transport", t.name).Str("topic", topic).Msg("Event bus ready")
	return b, nil
}

// Publish implements attendance.Publisher.
func (b *Bus) Publish(ctx context.Context, event attendance.Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return errors.New("event bus is closed")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataKind, string(event.Kind))
	msg.Metadata.Set(MetadataClassID, event.ClassID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	return b.transport.pub.Publish(b.topic, msg)
}

// Run consumes events until ctx is done. Designed for use with suture
// supervision.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("event bus is closed")
	}
	b.started = true
	b.mu.Unlock()

	err := b.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Running is closed once the router is consuming.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and releases the transport. A router that never
// ran has no handlers to wait for and is not closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()

	var rerr error
	if started {
		rerr = b.router.Close()
	}
	return errors.Join(rerr, b.transport.close())
}
