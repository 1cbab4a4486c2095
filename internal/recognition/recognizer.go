// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package recognition accumulates face recognition results for live
// attendance pairings and talks to the external recognition service.
package recognition

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

// Upstream is the part of the recognition service a live session needs.
type Upstream interface {
	Recognize(ctx context.Context, image string, known []models.FaceEmbedding) ([]string, error)
}

// FaceSource provides the enrolled faces of a class roster.
type FaceSource interface {
	RosterEmbeddings(ctx context.Context, classID string) ([]models.FaceEmbedding, error)
}

// faceInvalidator is implemented by face sources that cache roster faces.
type faceInvalidator interface {
	Invalidate(classIDs ...string)
}

// LiveSession is the recognition state owned by one live pairing.
type LiveSession struct {
	mu      sync.Mutex
	classID string

	acc      *Accumulator
	inFlight atomic.Bool
	failures atomic.Int32
}

// NewLiveSession creates the state for a live pairing of classID.
func NewLiveSession(classID string) *LiveSession {
	return &LiveSession{classID: classID, acc: NewAccumulator()}
}

// ClassID is the class whose roster faces are matched, empty until bound.
func (s *LiveSession) ClassID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classID
}

// BindClass sets the class of a session created without one. It reports
// whether the session's class is now classID; a session never changes class.
func (s *LiveSession) BindClass(classID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.classID == "" {
		s.classID = classID
	}
	return s.classID == classID
}

// Accumulator returns the session's present set.
func (s *LiveSession) Accumulator() *Accumulator { return s.acc }

// ConsecutiveFailures is the number of recognition calls that failed since the
// last success. Operator clients use it to warn about a degraded service.
func (s *LiveSession) ConsecutiveFailures() int { return int(s.failures.Load()) }

// Recognizer runs one recognition call per frame and merges the result into a
// live session. Upstream failures never reach the accumulator.
type Recognizer struct {
	upstream Upstream
	faces    FaceSource
}

// NewRecognizer creates a Recognizer.
func NewRecognizer(upstream Upstream, faces FaceSource) *Recognizer {
	return &Recognizer{upstream: upstream, faces: faces}
}

// ForgetFaces drops any cached roster faces of the given classes, or of every
// class when none are given. Call it after rosters or enrolled faces change.
func (r *Recognizer) ForgetFaces(classIDs ...string) {
	if inv, ok := r.faces.(faceInvalidator); ok {
		inv.Invalidate(classIDs...)
	}
}

// RecognizeFrame recognizes the students in image and merges them into sess.
// It returns the students recognized in this frame. A failed call returns nil
// and only bumps the session's failure counter.
func (r *Recognizer) RecognizeFrame(ctx context.Context, sess *LiveSession, image string) []Result {
	classID := sess.ClassID()
	if classID == "" {
		return nil
	}
	log := logging.Ctx(ctx).With().Str("class_id", classID).Logger()

	known, err := r.faces.RosterEmbeddings(ctx, classID)
	if err != nil {
		sess.failures.Add(1)
		log.Warn().Err(err).Msg("Failed to load roster faces for recognition")
		return nil
	}
	if len(known) == 0 {
		return nil
	}

	ids, err := r.upstream.Recognize(ctx, image, known)
	if err != nil {
		n := sess.failures.Add(1)
		log.Debug().Err(err).Int32("consecutive_failures", n).Msg("Recognition call failed; frame skipped")
		return nil
	}
	sess.failures.Store(0)

	names := make(map[string]string, len(known))
	for _, k := range known {
		names[k.StudentID] = k.Name
	}
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		// Only roster members can be present.
		if name, ok := names[id]; ok {
			results = append(results, Result{StudentID: id, Name: name})
		}
	}

	if added := sess.acc.Merge(results); added > 0 {
		metrics.RecognitionMatches.Add(float64(added))
		log.Debug().Int("new", added).Int("present", sess.acc.Len()).Msg("Present set grew")
	}
	return results
}

// TryRecognizeFrame is RecognizeFrame with at most one call in flight per
// session. It reports false without calling upstream when one is already running.
func (r *Recognizer) TryRecognizeFrame(ctx context.Context, sess *LiveSession, image string) ([]Result, bool) {
	if !sess.inFlight.CompareAndSwap(false, true) {
		metrics.RecognitionSkipped.Inc()
		return nil, false
	}
	defer sess.inFlight.Store(false)
	return r.RecognizeFrame(ctx, sess, image), true
}
