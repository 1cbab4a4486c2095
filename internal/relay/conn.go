// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Send errors.
var (
	ErrChannelFull   = errors.New("channel send buffer full")
	ErrChannelClosed = errors.New("channel closed")
)

// connIDCounter hands out process-unique connection ids.
var connIDCounter atomic.Uint64

// Conn is one relay channel: an operator browser or a capture device.
// A single read pump preserves per-device frame order and a single write pump
// drains the FIFO send buffer.
type Conn struct {
	id   uint64
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	// active is set by the first valid message; idle connections are closed.
	active atomic.Bool

	mu        sync.Mutex
	idleTimer *time.Timer // guarded by mu
	onClose   []func()
	closeOnce sync.Once
}

func newConn(hub *Hub, ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		id:   connIDCounter.Add(1),
		hub:  hub,
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() uint64 {
	return c.id
}

// Send enqueues msg for the write pump. It never blocks: a full buffer
// returns ErrChannelFull and a closed connection ErrChannelClosed.
func (c *Conn) Send(msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrChannelClosed
	default:
		return ErrChannelFull
	}
}

// OnClose installs a hook that runs once when the connection closes. A hook
// installed after close runs immediately.
func (c *Conn) OnClose(fn func()) {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		fn()
		return
	default:
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Close tears the connection down and runs its hooks exactly once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		hooks := c.onClose
		c.onClose = nil
		timer := c.idleTimer
		c.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		for _, fn := range hooks {
			fn()
		}
		if c.ws != nil {
			_ = c.ws.Close() // Explicitly ignore error - best-effort cleanup
		}
	})
}

// markActive records that the connection sent a valid message.
func (c *Conn) markActive() {
	c.active.Store(true)
}

// start runs the pumps and arms the idle timeout.
func (c *Conn) start(idleTimeout time.Duration) {
	c.armIdleTimeout(idleTimeout)
	go c.writePump()
	go c.readPump()
}

// armIdleTimeout closes the connection after d unless it has become active.
// A connection that is already closed is left alone.
func (c *Conn) armIdleTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.idleTimer = time.AfterFunc(d, func() {
		if c.active.Load() {
			return
		}
		metrics.RelayRegistrationTimeouts.Inc()
		logging.Debug().Uint64("conn_id", c.id).Dur("timeout", d).
			Msg("Closing relay channel that never registered")
		c.Close()
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("conn_id", c.id).Msg("unexpected relay channel close")
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		// Any activity pushes the read deadline out, not only pongs.
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.handle(c, data)
	}
}

// writePump pumps messages from the send buffer to the websocket connection
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug().Err(err).Uint64("conn_id", c.id).Msg("failed to write relay message")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
