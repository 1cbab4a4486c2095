// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package relay

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/apperr"
)

// Message types on the relay channel.
const (
	TypeRegisterSession = "register_session"
	TypeImageFrame      = "image_frame"
	TypeImage           = "image"
	TypeRegistered      = "session_registered"
	TypeRecognized      = "recognized"
	TypeError           = "error"
)

// maxSessionIDLength bounds ids accepted from the wire.
const maxSessionIDLength = 128

// Inbound is a parsed channel message: RegisterSession or ImageFrame.
type Inbound interface {
	inbound()
}

// RegisterSession binds the sending channel to a pairing id.
type RegisterSession struct {
	ID string
}

// ImageFrame is a device frame for the operator registered under SessionID.
type ImageFrame struct {
	SessionID string `json:"sessionId"`
	Image     string `json:"image"`
}

func (RegisterSession) inbound() {}
func (ImageFrame) inbound()      {}

// Outbound is a hub-to-peer message.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Parse decodes one channel message. Structured JSON is tried first; a frame
// that is not a JSON object is taken as a bare session id (legacy registration).
// Both registration forms yield the same RegisterSession value.
func Parse(raw []byte) (Inbound, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, apperr.Validation("empty message")
	}

	if raw[0] == '{' {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, "malformed message", err)
		}
		return parseEnvelope(env)
	}

	id := string(raw)
	if !ValidSessionID(id) {
		return nil, apperr.Validation("message is neither a structured message nor a session id")
	}
	return RegisterSession{ID: id}, nil
}

func parseEnvelope(env envelope) (Inbound, error) {
	switch env.Type {
	case TypeRegisterSession:
		var id string
		if err := json.Unmarshal(env.Payload, &id); err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, "register_session payload must be a session id", err)
		}
		if !ValidSessionID(id) {
			return nil, apperr.Validation("invalid session id")
		}
		return RegisterSession{ID: id}, nil

	case TypeImageFrame:
		var frame ImageFrame
		if err := json.Unmarshal(env.Payload, &frame); err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, "image_frame payload must be {sessionId, image}", err)
		}
		if !ValidSessionID(frame.SessionID) || frame.Image == "" {
			return nil, apperr.Validation("image_frame requires sessionId and image")
		}
		return frame, nil

	case "":
		return nil, apperr.Validation("message type is required")

	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// ValidSessionID reports whether id is a plausible pairing id:
// 1 to 128 characters from [A-Za-z0-9_-].
func ValidSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// NewSessionID returns a 128-bit random pairing id as 32 hex characters.
func NewSessionID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
