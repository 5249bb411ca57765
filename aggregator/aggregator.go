// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregator orchestrates one aggregation pass: it fans out to
// the registered subsystems, buffers every output, merges them through
// the bucket pipeline and the cap system, and caches the resulting
// snapshot.
//
// # Error Policy
//
// The default policy is isolate-and-continue: one failing subsystem is
// logged and metered, its output treated as empty, and the pass goes on.
// WithFailFast switches to aborting on the first failure. A cache tier
// outage never fails a pass; it degrades to a recompute.
//
// # Determinism
//
// Subsystems may run concurrently, but all outputs are materialized
// before the merge and the merge itself is a deterministic fold, so
// execution interleaving never changes the result. A cancelled pass
// discards its partial outputs and writes nothing to the cache.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/cache"
	"github.com/AleutianAI/actorcore/caps"
	"github.com/AleutianAI/actorcore/registry"
	"github.com/AleutianAI/actorcore/telemetry"
)

// Aggregator computes actor snapshots. Construct with New; the zero
// value is not usable.
//
// Thread Safety: Safe for concurrent use. Concurrent resolves of the
// same actor version share one rebuild via singleflight.
type Aggregator struct {
	plugins      *registry.PluginRegistry
	combiner     *registry.CombinerRegistry
	capsProvider *caps.Provider
	snapshots    *cache.MultiLayerCache // nil disables caching

	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  oteltrace.Tracer
	flight  singleflight.Group

	failFast          bool
	maxConcurrency    int
	timeBudget        time.Duration
	serveStale        bool
	validateSnapshots bool
	cacheTTL          time.Duration

	totalResolutions atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	errorCount       atomic.Int64
	staleServes      atomic.Int64
	latency          latencyTracker

	lastGood *staleStore // bounded per-actor last-good snapshots
}

// Stats is a point-in-time view of the aggregator's counters.
type Stats struct {
	TotalResolutions  int64         `json:"total_resolutions"`
	CacheHits         int64         `json:"cache_hits"`
	CacheMisses       int64         `json:"cache_misses"`
	ErrorCount        int64         `json:"error_count"`
	StaleServes       int64         `json:"stale_serves"`
	AvgResolutionTime time.Duration `json:"avg_resolution_time"`
	MaxResolutionTime time.Duration `json:"max_resolution_time"`
}

// New builds an aggregator.
//
// Inputs:
//
//	plugins - The subsystem registry. Required.
//	combiner - Per-dimension merge rules. Nil means every dimension
//	uses the plain bucket pipeline.
//	capsProvider - Effective-cap resolution. Required.
//	snapshots - The tiered snapshot cache. Nil disables caching.
//	opts - Behavior overrides.
//
// Outputs:
//
//	*Aggregator - The ready aggregator.
//	error - Non-nil if a required collaborator is missing.
func New(plugins *registry.PluginRegistry, combiner *registry.CombinerRegistry, capsProvider *caps.Provider, snapshots *cache.MultiLayerCache, opts ...Option) (*Aggregator, error) {
	if plugins == nil {
		return nil, ErrNilRegistry
	}
	if capsProvider == nil {
		return nil, ErrNilCapsProvider
	}
	if combiner == nil {
		combiner = registry.NewCombinerRegistry()
	}

	a := &Aggregator{
		plugins:      plugins,
		combiner:     combiner,
		capsProvider: capsProvider,
		snapshots:    snapshots,
		logger:       slog.Default(),
		tracer:       otel.Tracer("actorcore/aggregator"),
		lastGood:     newStaleStore(defaultStaleCapacity),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Resolve computes the actor's snapshot.
//
// Description:
//
//	Validates the actor, consults the snapshot cache under the
//	"<actor_id>:<version>" key, and on a miss rebuilds: subsystems are
//	invoked (concurrently, bounded by WithMaxConcurrency), their outputs
//	buffered, then merged deterministically. The finished snapshot is
//	cached and returned. Concurrent resolves for the same key share one
//	rebuild.
//
// Inputs:
//
//	ctx - Cancels the pass; a cancelled pass writes nothing to the cache.
//	act - The actor, treated as read-only for the duration of the call.
//
// Outputs:
//
//	*actor.Snapshot - The computed (or cached) snapshot.
//	error - Validation failure, cancellation, or — under fail-fast — the
//	first subsystem error.
//
// Thread Safety: Safe for concurrent use.
func (a *Aggregator) Resolve(ctx context.Context, act *actor.Actor) (*actor.Snapshot, error) {
	if err := actor.ValidateActor(act); err != nil {
		a.noteError(ctx, "invalid_actor")
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.resolve", oteltrace.WithAttributes(
		attribute.String("actor.id", act.ID),
		attribute.Int64("actor.version", act.Version),
	))
	defer span.End()

	start := time.Now()
	a.totalResolutions.Add(1)
	if a.metrics != nil {
		a.metrics.ActiveResolutions.Add(ctx, 1)
		defer a.metrics.ActiveResolutions.Add(ctx, -1)
	}
	defer func() {
		d := time.Since(start)
		a.latency.record(d)
		if a.metrics != nil {
			a.metrics.ResolutionDuration.Record(ctx, d.Seconds())
		}
	}()

	key := act.CacheKey()
	if a.snapshots != nil {
		if snap, ok := a.snapshots.Get(ctx, key); ok {
			a.cacheHits.Add(1)
			if a.metrics != nil {
				a.metrics.CacheHitsTotal.Add(ctx, 1)
			}
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return snap, nil
		}
		a.cacheMisses.Add(1)
		if a.metrics != nil {
			a.metrics.CacheMissesTotal.Add(ctx, 1)
		}
	}

	v, err, _ := a.flight.Do(key, func() (any, error) {
		return a.rebuild(ctx, act, key)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return a.handleBudgetExceeded(ctx, act, err)
		}
		a.noteError(ctx, "resolve")
		return nil, err
	}
	return v.(*actor.Snapshot), nil
}

// ResolveWithContext runs the identical pipeline with an additional
// per-call data map made available to every subsystem via CallContext.
func (a *Aggregator) ResolveWithContext(ctx context.Context, act *actor.Actor, data map[string]any) (*actor.Snapshot, error) {
	return a.Resolve(WithCallContext(ctx, data), act)
}

// ResolveBatch resolves several actors concurrently, preserving input
// order in the result. The first error aborts the batch.
func (a *Aggregator) ResolveBatch(ctx context.Context, actors []*actor.Actor) ([]*actor.Snapshot, error) {
	out := make([]*actor.Snapshot, len(actors))
	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, act := range actors {
		i, act := i, act
		g.Go(func() error {
			snap, err := a.Resolve(gctx, act)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", act.ID, err)
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns a point-in-time view of the aggregator's counters.
func (a *Aggregator) Stats() Stats {
	return Stats{
		TotalResolutions:  a.totalResolutions.Load(),
		CacheHits:         a.cacheHits.Load(),
		CacheMisses:       a.cacheMisses.Load(),
		ErrorCount:        a.errorCount.Load(),
		StaleServes:       a.staleServes.Load(),
		AvgResolutionTime: a.latency.avg(),
		MaxResolutionTime: a.latency.max(),
	}
}

// rebuild runs the full pipeline for one cache key: gather, merge,
// validate, cache.
func (a *Aggregator) rebuild(ctx context.Context, act *actor.Actor, key string) (*actor.Snapshot, error) {
	if a.timeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeBudget)
		defer cancel()
	}

	start := time.Now()
	subs := a.plugins.GetByPriority()
	outputs, err := a.gather(ctx, act, subs)
	if err != nil {
		return nil, err
	}
	// Cancellation discards the buffered outputs; no partial snapshot
	// ever reaches the cache.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := a.merge(act, subs, outputs)
	snap.ProcessingTime = time.Since(start)

	if a.validateSnapshots {
		if err := actor.ValidateSnapshot(snap); err != nil {
			a.noteError(ctx, "invalid_snapshot")
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.snapshots != nil {
		if err := a.snapshots.Set(ctx, key, snap, a.cacheTTL); err != nil {
			a.logger.Warn("snapshot cache write failed", "key", key, "error", err)
		}
	}
	a.storeLastGood(act.ID, snap)
	if a.metrics != nil {
		a.metrics.ResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rebuilt")))
	}
	return snap, nil
}

// gather invokes every subsystem and buffers the outputs in registry
// (ascending priority) order. Under the default policy a failing
// subsystem yields a nil output slot.
func (a *Aggregator) gather(ctx context.Context, act *actor.Actor, subs []actor.Subsystem) ([]*actor.SubsystemOutput, error) {
	outputs := make([]*actor.SubsystemOutput, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, s := range subs {
		i, s := i, s
		g.Go(func() error {
			t0 := time.Now()
			out, err := s.Contribute(gctx, act)
			if a.metrics != nil {
				a.metrics.SubsystemDuration.Record(gctx, time.Since(t0).Seconds(),
					metric.WithAttributes(attribute.String("system", s.SystemID())))
			}
			if err == nil && out != nil {
				err = out.Validate()
			}
			if err != nil {
				if a.failFast {
					return fmt.Errorf("%w: %s: %v", ErrSubsystemFailed, s.SystemID(), err)
				}
				a.errorCount.Add(1)
				if a.metrics != nil {
					a.metrics.SubsystemErrorsTotal.Add(gctx, 1,
						metric.WithAttributes(attribute.String("system", s.SystemID())))
				}
				a.logger.Warn("subsystem isolated",
					"system", s.SystemID(), "actor", act.ID, "error", err)
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// handleBudgetExceeded meters the overrun and, when allowed, answers
// with the actor's last good snapshot.
func (a *Aggregator) handleBudgetExceeded(ctx context.Context, act *actor.Actor, cause error) (*actor.Snapshot, error) {
	if a.metrics != nil {
		a.metrics.BudgetExceededTotal.Add(ctx, 1)
	}
	if a.serveStale {
		if stale := a.loadLastGood(act.ID); stale != nil {
			a.staleServes.Add(1)
			if a.metrics != nil {
				a.metrics.StaleServesTotal.Add(ctx, 1)
			}
			a.logger.Warn("serving stale snapshot after budget overrun",
				"actor", act.ID, "stale_version", stale.Version)
			return stale, nil
		}
	}
	a.noteError(ctx, "budget_exceeded")
	return nil, fmt.Errorf("%w: time budget exceeded for %s: %v", ErrAggregationFailed, act.ID, cause)
}

func (a *Aggregator) storeLastGood(actorID string, snap *actor.Snapshot) {
	a.lastGood.put(actorID, snap)
}

func (a *Aggregator) loadLastGood(actorID string) *actor.Snapshot {
	return a.lastGood.get(actorID)
}

func (a *Aggregator) noteError(ctx context.Context, kind string) {
	if a.metrics != nil {
		a.metrics.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", kind),
			attribute.String("component", "aggregator"),
		))
	}
}

// latencyTracker accumulates resolve latencies with atomic counters.
type latencyTracker struct {
	totalNs atomic.Int64
	count   atomic.Int64
	maxNs   atomic.Int64
}

func (t *latencyTracker) record(d time.Duration) {
	ns := d.Nanoseconds()
	t.totalNs.Add(ns)
	t.count.Add(1)
	for {
		cur := t.maxNs.Load()
		if ns <= cur || t.maxNs.CompareAndSwap(cur, ns) {
			return
		}
	}
}

func (t *latencyTracker) avg() time.Duration {
	n := t.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(t.totalNs.Load() / n)
}

func (t *latencyTracker) max() time.Duration {
	return time.Duration(t.maxNs.Load())
}
