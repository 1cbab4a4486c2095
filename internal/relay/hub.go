// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/recognition"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// TicketKeeper resolves pairing tickets at registration and keeps them alive
// while a channel is registered under them.
type TicketKeeper interface {
	Get(ctx context.Context, id string) (*Ticket, error)
	Hold(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// FrameRecognizer runs recognition on relayed live frames.
type FrameRecognizer interface {
	TryRecognizeFrame(ctx context.Context, sess *recognition.LiveSession, image string) ([]recognition.Result, bool)
}

// RecognizedPayload is pushed to a live operator after a relayed frame matched students.
type RecognizedPayload struct {
	Recognized          []recognition.Result `json:"recognized_students"`
	Present             []recognition.Result `json:"present"`
	ConsecutiveFailures int                  `json:"consecutiveFailures"`
}

// Hub owns the relay channels and routes messages between capture devices and
// operators through the pairing registry.
type Hub struct {
	registry   *Registry
	tickets    TicketKeeper
	recognizer FrameRecognizer
	cfg        config.RelayConfig
	origins    []string
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	conns map[*Conn]struct{}

	// baseCtx scopes background recognition calls to the hub's lifetime.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Hub.
type Option func(*Hub)

// WithRecognizer enables server-side recognition of relayed live frames when
// relay.recognize_frames is set.
func WithRecognizer(r FrameRecognizer) Option {
	return func(h *Hub) { h.recognizer = r }
}

// WithAllowedOrigins restricts channel upgrades to the given browser origins.
// "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.origins = origins }
}

// NewHub creates a hub over registry. tickets may be nil, in which case every
// registration is a live pairing without a class.
func NewHub(registry *Registry, tickets TicketKeeper, cfg config.RelayConfig, opts ...Option) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 10 << 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry: registry,
		tickets:  tickets,
		cfg:      cfg,
		origins:  []string{"*"},
		conns:    make(map[*Conn]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// Registry returns the hub's pairing registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.origins {
		if allowed == "*" || (origin != "" && allowed == origin) {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("Relay channel rejected: origin not allowed")
	return false
}

// ServeHTTP upgrades the request to a relay channel.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Debug().Err(err).Msg("relay channel upgrade failed")
		return
	}

	c := newConn(h, ws, h.cfg.SendBuffer)
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.RelayConnections.Set(float64(n))

	c.OnClose(func() { h.forget(c) })
	c.start(h.cfg.RegistrationTimeout)
	logging.Debug().Uint64("conn_id", c.id).Int("total_connections", n).Msg("relay channel connected")
}

func (h *Hub) forget(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	metrics.RelayConnections.Set(float64(n))
	logging.Debug().Uint64("conn_id", c.id).Int("total_connections", n).Msg("relay channel disconnected")
}

// ConnectionCount returns the number of open channels.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// RunWithContext blocks until ctx is done, then closes every channel.
// Designed for use with suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case <-ticker.C:
			logging.Debug().
				Int("connections", h.ConnectionCount()).
				Int("pairings", h.registry.Len()).
				Msg("relay hub status")
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })

	for _, c := range conns {
		c.Close()
	}

	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "relay-hub").
		Str("reason", string(reason)).
		Int("channels_closed", len(conns)).
		Msg("relay hub stopped")
}

// Close cancels background work. Channels are closed by RunWithContext.
func (h *Hub) Close() {
	h.cancel()
}

// handle dispatches one inbound message. Bad input is logged and dropped; it
// never affects other channels.
func (h *Hub) handle(c *Conn, raw []byte) {
	msg, err := Parse(raw)
	if err != nil {
		metrics.RelayMessagesReceived.WithLabelValues("invalid").Inc()
		logging.Warn().Err(err).Uint64("conn_id", c.id).Int("bytes", len(raw)).Msg("Dropping malformed relay message")
		return
	}

	switch m := msg.(type) {
	case RegisterSession:
		metrics.RelayMessagesReceived.WithLabelValues(TypeRegisterSession).Inc()
		h.register(c, m.ID)
	case ImageFrame:
		metrics.RelayMessagesReceived.WithLabelValues(TypeImageFrame).Inc()
		c.markActive()
		_ = h.ForwardFrame(m.SessionID, m.Image)
	}
}

// register binds id to c and installs the disconnect hook that removes it.
func (h *Hub) register(c *Conn, id string) {
	role, classID := RoleLive, ""
	ticketed := false
	if h.tickets != nil {
		t, err := h.tickets.Get(h.baseCtx, id)
		switch {
		case err == nil:
			role, classID, ticketed = t.Role, t.ClassID, true
		case !errors.Is(err, apperr.ErrNotFound):
			logging.Warn().Err(err).Str("session_id", id).Msg("Failed to read pairing ticket")
		}
	}

	p, err := h.registry.Register(id, c, role, classID)
	if err != nil {
		logging.Warn().Str("session_id", id).Uint64("conn_id", c.id).Msg("Rejected registration of a session bound to another channel")
		_ = c.Send(Outbound{Type: TypeError, Payload: apperr.Reason(err)})
		return
	}
	c.markActive()
	if ticketed {
		if err := h.tickets.Hold(h.baseCtx, id); err != nil {
			logging.Warn().Err(err).Str("session_id", id).Msg("Failed to hold pairing ticket")
		}
	}
	c.OnClose(func() {
		if !h.registry.Unregister(id, c) {
			return
		}
		logging.Info().Str("session_id", id).Msg("Session closed")
		if _, err := h.registry.Pairing(id); ticketed && err != nil {
			// The ticket outlives the channel by one TTL so a reconnect keeps role and class.
			if err := h.tickets.Release(context.Background(), id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				logging.Warn().Err(err).Str("session_id", id).Msg("Failed to release pairing ticket")
			}
		}
	})

	logging.Info().Str("session_id", id).Str("role", string(p.Role)).Str("class_id", classID).Msg("Session registered")
	_ = c.Send(Outbound{Type: TypeRegistered, Payload: id})
}

// ForwardFrame relays a device frame to the operator registered under id as
// {type:"image_frame", payload:image}. Frames for unknown ids are dropped.
func (h *Hub) ForwardFrame(id, image string) error {
	p, err := h.registry.Pairing(id)
	if err != nil {
		metrics.RecordFrameDropped("no_pairing")
		logging.Debug().Str("session_id", id).Msg("Dropping frame for unregistered session")
		return err
	}
	if err := p.Channel.Send(Outbound{Type: TypeImageFrame, Payload: image}); err != nil {
		metrics.RecordFrameDropped("buffer_full")
		logging.Debug().Err(err).Str("session_id", id).Msg("Dropping frame: operator channel not accepting")
		return err
	}
	metrics.RelayFramesForwarded.WithLabelValues("channel").Inc()

	if p.Live != nil && h.cfg.RecognizeFrames && h.recognizer != nil {
		go h.recognize(p, image)
	}
	return nil
}

func (h *Hub) recognize(p *Pairing, image string) {
	ctx := logging.ContextWithSessionID(h.baseCtx, p.ID)
	results, ran := h.recognizer.TryRecognizeFrame(ctx, p.Live, image)
	if !ran || len(results) == 0 {
		return
	}
	_ = p.Channel.Send(Outbound{Type: TypeRecognized, Payload: RecognizedPayload{
		Recognized:          results,
		Present:             p.Live.Accumulator().Entries(),
		ConsecutiveFailures: p.Live.ConsecutiveFailures(),
	}})
}

// DeliverUpload relays a single-shot upload to the operator registered under id
// as {type:"image", payload:image}. It returns nil once the message is
// enqueued and a NotFound error otherwise, including when the operator
// channel is closed or its send buffer is full.
func (h *Hub) DeliverUpload(id, image string) error {
	p, err := h.registry.Pairing(id)
	if err != nil {
		metrics.RecordFrameDropped("no_pairing")
		return err
	}
	if err := p.Channel.Send(Outbound{Type: TypeImage, Payload: image}); err != nil {
		metrics.RecordFrameDropped("buffer_full")
		logging.Debug().Err(err).Str("session_id", id).Msg("Upload not delivered: operator channel not accepting")
		return apperr.NotFound(ReasonSessionNotFound)
	}
	metrics.RelayFramesForwarded.WithLabelValues("upload").Inc()
	return nil
}

// LiveSession returns the recognition state of the live pairing id.
func (h *Hub) LiveSession(id string) (*recognition.LiveSession, error) {
	p, err := h.registry.Pairing(id)
	if err != nil {
		return nil, err
	}
	if p.Live == nil {
		return nil, apperr.NotFound("Session is not a live attendance session.")
	}
	return p.Live, nil
}
