// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package recognition

import (
	"context"
	"time"

	"github.com/tomtom215/rollcall/internal/cache"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

// CachedFaces is a FaceSource that reuses roster faces across frames of the
// same class for up to a TTL.
type CachedFaces struct {
	source FaceSource
	cache  *cache.Cache[[]models.FaceEmbedding]
}

// NewCachedFaces wraps source with a per-class cache. Call Close to stop the
// cache's cleanup loop.
func NewCachedFaces(source FaceSource, ttl time.Duration, opts ...cache.Option) *CachedFaces {
	return &CachedFaces{
		source: source,
		cache:  cache.New[[]models.FaceEmbedding](ttl, opts...),
	}
}

// RosterEmbeddings returns the cached faces of classID, loading them from the
// underlying source on a miss. Errors are not cached.
func (c *CachedFaces) RosterEmbeddings(ctx context.Context, classID string) ([]models.FaceEmbedding, error) {
	if faces, ok := c.cache.Get(classID); ok {
		metrics.RosterFaceCacheLookups.WithLabelValues("hit").Inc()
		return faces, nil
	}
	metrics.RosterFaceCacheLookups.WithLabelValues("miss").Inc()

	faces, err := c.source.RosterEmbeddings(ctx, classID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(classID, faces)
	return faces, nil
}

// Invalidate drops the cached faces of the given classes, or of every class
// when none are given.
func (c *CachedFaces) Invalidate(classIDs ...string) {
	if len(classIDs) == 0 {
		c.cache.Clear()
		return
	}
	for _, id := range classIDs {
		c.cache.Delete(id)
	}
}

// Close stops the cache's cleanup loop.
func (c *CachedFaces) Close() { c.cache.Close() }
