// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/actorcore/actor"
)

// WarmFunc recomputes the snapshot for a key that no tier holds.
type WarmFunc func(ctx context.Context, key string) (*actor.Snapshot, error)

// Warmer pre-populates the fast tier from the lower tiers or from a
// recompute callback, independent of normal Get/Set traffic. Warming is
// rate limited so a large warm set cannot starve foreground reads.
//
// Thread Safety: Safe for concurrent use; only one warming run is active
// at a time.
type Warmer struct {
	cache   *MultiLayerCache
	limiter *rate.Limiter
	logger  *slog.Logger

	warming    atomic.Bool
	totalOps   atomic.Int64
	successes  atomic.Int64
	failures   atomic.Int64
	totalDurNs atomic.Int64
	lastNano   atomic.Int64
}

// WarmerOption customizes a Warmer.
type WarmerOption func(*Warmer)

// WithWarmRate bounds warming throughput in keys per second.
func WithWarmRate(perSecond float64, burst int) WarmerOption {
	return func(w *Warmer) {
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithWarmLogger sets the warmer's logger.
func WithWarmLogger(l *slog.Logger) WarmerOption {
	return func(w *Warmer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWarmer returns a warmer over the given cache. The default rate
// limit is 500 keys/s with a burst of 50.
func NewWarmer(c *MultiLayerCache, opts ...WarmerOption) *Warmer {
	w := &Warmer{
		cache:   c,
		limiter: rate.NewLimiter(500, 50),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Warm ensures every key is resident in L1.
//
// Description:
//
//	For each key, a tier walk (which itself promotes into L1) is tried
//	first; only keys absent from every tier go through the recompute
//	callback. A nil fetch skips recompute, warming from lower tiers
//	only. Individual failures are counted and logged, not fatal; the
//	run aborts only on context cancellation.
//
// Outputs:
//
//	error - ErrWarmingInProgress if a run is already active, or the
//	context error on cancellation.
func (w *Warmer) Warm(ctx context.Context, keys []string, fetch WarmFunc) error {
	if !w.warming.CompareAndSwap(false, true) {
		return ErrWarmingInProgress
	}
	defer w.warming.Store(false)

	start := time.Now()
	defer func() {
		w.totalDurNs.Add(time.Since(start).Nanoseconds())
		w.lastNano.Store(time.Now().UnixNano())
	}()

	for _, key := range keys {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("warming aborted: %w", err)
		}
		w.totalOps.Add(1)

		if _, ok := w.cache.Get(ctx, key); ok {
			w.successes.Add(1)
			continue
		}
		if fetch == nil {
			w.failures.Add(1)
			continue
		}

		snap, err := fetch(ctx, key)
		if err != nil {
			w.failures.Add(1)
			w.logger.Warn("warming recompute failed", "key", key, "error", err)
			continue
		}
		if err := w.cache.Set(ctx, key, snap, w.cache.L1TTL()); err != nil {
			w.failures.Add(1)
			w.logger.Warn("warming write failed", "key", key, "error", err)
			continue
		}
		w.successes.Add(1)
	}
	return nil
}

// WarmSnapshots seeds the cache with precomputed snapshots.
func (w *Warmer) WarmSnapshots(ctx context.Context, snapshots map[string]*actor.Snapshot) error {
	if !w.warming.CompareAndSwap(false, true) {
		return ErrWarmingInProgress
	}
	defer w.warming.Store(false)

	start := time.Now()
	defer func() {
		w.totalDurNs.Add(time.Since(start).Nanoseconds())
		w.lastNano.Store(time.Now().UnixNano())
	}()

	for key, snap := range snapshots {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("warming aborted: %w", err)
		}
		w.totalOps.Add(1)
		if err := w.cache.Set(ctx, key, snap, 0); err != nil {
			w.failures.Add(1)
			w.logger.Warn("warming write failed", "key", key, "error", err)
			continue
		}
		w.successes.Add(1)
	}
	return nil
}

// IsWarming reports whether a warming run is active.
func (w *Warmer) IsWarming() bool {
	return w.warming.Load()
}

// Stats returns a point-in-time view of warming activity.
func (w *Warmer) Stats() WarmingStats {
	s := WarmingStats{
		TotalOperations: w.totalOps.Load(),
		Successes:       w.successes.Load(),
		Failures:        w.failures.Load(),
		TotalDuration:   time.Duration(w.totalDurNs.Load()),
	}
	if ns := w.lastNano.Load(); ns > 0 {
		s.LastWarming = time.Unix(0, ns)
	}
	return s
}
