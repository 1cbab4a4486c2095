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

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/rollcall/internal/config"
)

const queueGroup = "rollcall-audit"

// newTransport publishes to core NATS when a URL is configured, or to an
// embedded server when EmbeddedNATS is set.
func newTransport(cfg config.EventsConfig, logger watermill.LoggerAdapter) (transport, error) {
	url := cfg.NATSURL
	stopServer := func() error { return nil }
	if cfg.EmbeddedNATS {
		ns, err := startEmbeddedNATS()
		if err != nil {
			return transport{}, err
		}
		url, stopServer = ns.ClientURL(), ns.Shutdown
		logger.Info("Embedded NATS server started", watermill.LogFields{"url": url})
	}
	if url == "" {
		return newGoChannel(logger), nil
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = stopServer()
		return transport{}, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = stopServer()
		return transport{}, fmt.Errorf("create nats subscriber: %w", err)
	}

	return transport{
		pub:  pub,
		sub:  sub,
		name: "nats",
		close: func() error {
			return errors.Join(sub.Close(), pub.Close(), stopServer())
		},
	}, nil
}
