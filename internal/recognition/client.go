// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rollcall/internal/apperr"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

// maxResponseSize caps upstream response bodies.
const maxResponseSize = 16 << 20

const breakerName = "recognition-service"

// knownStudent is the wire shape of an enrolled face.
type knownStudent struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name,omitempty"`
	Embedding []float32 `json:"embedding"`
}

// Duplicate is the outcome of a duplicate-face check.
type Duplicate struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Student     Result `json:"duplicate_student"`
}

// Client calls the external face recognition service. Calls are rate limited,
// bounded by the configured timeout and guarded by a circuit breaker.
//
// Failures are apperr.ErrUpstream errors, except images the service rejects
// (for example "No face detected"), which are apperr.ErrValidation.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a recognition client.
// Circuit breaker configuration:
//   - opens after BreakerFailures consecutive failures
//   - stays open for BreakerCooldown before probing
//   - allows one trial request in half-open state
func NewClient(cfg config.RecognitionConfig) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Canceled callers and rejected images say nothing about upstream health.
			var se *statusError
			if errors.As(err, &se) {
				return se.code < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{},
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

// Recognize returns the ids of known students found in image.
func (c *Client) Recognize(ctx context.Context, image string, known []models.FaceEmbedding) ([]string, error) {
	req := struct {
		Image         string         `json:"image"`
		KnownStudents []knownStudent `json:"known_students"`
	}{Image: image, KnownStudents: toKnown(known, false)}

	var resp struct {
		RecognizedIDs []string `json:"recognized_ids"`
	}
	if err := c.post(ctx, "recognize_faces", req, &resp); err != nil {
		return nil, err
	}
	return resp.RecognizedIDs, nil
}

// Embedding computes the face vector of the largest face in image.
func (c *Client) Embedding(ctx context.Context, image string) ([]float32, error) {
	req := struct {
		Image string `json:"image"`
	}{Image: image}

	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.post(ctx, "get_embedding", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, apperr.Validation("Could not generate face embedding from the provided image.")
	}
	return resp.Embedding, nil
}

// CheckDuplicate reports whether embedding matches any known face.
func (c *Client) CheckDuplicate(ctx context.Context, embedding []float32, known []models.FaceEmbedding) (*Duplicate, error) {
	if len(known) == 0 {
		return &Duplicate{}, nil
	}
	req := struct {
		NewEmbedding  []float32      `json:"new_embedding"`
		KnownStudents []knownStudent `json:"known_students"`
	}{NewEmbedding: embedding, KnownStudents: toKnown(known, true)}

	var resp Duplicate
	if err := c.post(ctx, "check_duplicate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func toKnown(faces []models.FaceEmbedding, withNames bool) []knownStudent {
	out := make([]knownStudent, len(faces))
	for i, f := range faces {
		out[i] = knownStudent{ID: f.StudentID, Embedding: f.Embedding}
		if withNames {
			out[i].Name = f.Name
		}
	}
	return out
}

// post sends one JSON request through the limiter and the breaker.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordRecognitionCall(endpoint, "rejected", time.Since(start))
		return apperr.Upstream("Recognition service is busy.", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	raw, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, payload)
	})
	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.RecordRecognitionCall(endpoint, result, time.Since(start))
		var se *statusError
		if errors.As(err, &se) {
			if se.code < http.StatusInternalServerError {
				return apperr.Wrap(apperr.ErrValidation, se.msg, err)
			}
			return apperr.Upstream(se.msg, err)
		}
		return apperr.Upstream("Recognition service unavailable.", err)
	}
	metrics.RecordRecognitionCall(endpoint, "ok", time.Since(start))

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Upstream("Recognition service returned an invalid response.", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var upstream struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("%s returned HTTP %d", endpoint, resp.StatusCode)
		if json.Unmarshal(raw, &upstream) == nil && upstream.Error != "" {
			msg = upstream.Error
		}
		return nil, &statusError{code: resp.StatusCode, msg: msg}
	}
	return raw, nil
}

// statusError is a non-2xx upstream reply. Its message is the service's own
// error text when it sent one.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("recognition service: HTTP %d: %s", e.code, e.msg)
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
