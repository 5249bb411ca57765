// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregator

import (
	"log/slog"
	"time"

	"github.com/AleutianAI/actorcore/telemetry"
)

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics attaches the telemetry instruments. Without it the
// aggregator still keeps its local counters but emits nothing.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithFailFast switches the subsystem error policy from the default
// isolate-and-continue to aborting the resolve on the first failure.
func WithFailFast() Option {
	return func(a *Aggregator) {
		a.failFast = true
	}
}

// WithMaxConcurrency bounds parallel subsystem invocation (and batch
// resolution). Values below 1 mean unbounded.
func WithMaxConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.maxConcurrency = n
	}
}

// WithTimeBudget bounds one resolve's wall time. Exceeding the budget is
// metered; combined with WithStaleServes the aggregator answers from the
// last good snapshot instead of failing.
func WithTimeBudget(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeBudget = d
	}
}

// WithStaleServes allows answering a budget-exceeded resolve with the
// actor's most recent successfully built snapshot, if one exists.
func WithStaleServes() Option {
	return func(a *Aggregator) {
		a.serveStale = true
	}
}

// WithStaleCapacity bounds how many actors keep a last good snapshot
// for stale serving. Defaults to 1024; values below 1 are ignored.
func WithStaleCapacity(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.lastGood = newStaleStore(n)
		}
	}
}

// WithSnapshotValidation validates every built snapshot before it is
// cached or returned.
func WithSnapshotValidation() Option {
	return func(a *Aggregator) {
		a.validateSnapshots = true
	}
}

// WithCacheTTL overrides the snapshot TTL handed to the cache. Zero uses
// the cache's per-tier defaults.
func WithCacheTTL(d time.Duration) Option {
	return func(a *Aggregator) {
		a.cacheTTL = d
	}
}
