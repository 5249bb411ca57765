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

	"github.com/AleutianAI/actorcore/actor"
)

// MultiLayerCache is the tiered snapshot store described in the package
// doc. Construct with New; the zero value is not usable.
type MultiLayerCache struct {
	cfg    Config
	logger *slog.Logger

	l1 *memoryLayer
	l2 *shardedLayer
	l3 *badgerLayer // nil when the durable tier is disabled

	closed   atomic.Bool
	tierErrs atomic.Int64
}

// New builds a tiered cache from cfg.
//
// Description:
//
//	Validates the configuration, builds the in-memory tiers, and opens
//	the BadgerDB tier when enabled. Close must be called to release the
//	durable tier.
//
// Inputs:
//
//	cfg - Cache configuration. Use DefaultConfig() or InMemoryConfig().
//	opts - Optional overrides (WithLogger).
//
// Outputs:
//
//	*MultiLayerCache - The ready cache.
//	error - Non-nil if the config is invalid or the durable tier fails
//	to open.
//
// Thread Safety: The returned cache is safe for concurrent use.
func New(cfg Config, opts ...Option) (*MultiLayerCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &MultiLayerCache{
		cfg:    cfg,
		logger: slog.Default(),
		l1:     newMemoryLayer(cfg.L1MaxEntries, cfg.L1TTL),
		l2:     newShardedLayer(cfg.L2MaxEntries, cfg.L2Shards, cfg.L2TTL),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.L3Enabled || cfg.L3InMemory {
		l3, err := newBadgerLayer(cfg, c.logger)
		if err != nil {
			return nil, fmt.Errorf("build l3 tier: %w", err)
		}
		c.l3 = l3
	}
	return c, nil
}

// Get returns the snapshot under key, walking L1 → L2 → L3 and promoting
// upward on the way back ("warm on read"). A durable-tier failure is
// logged and degrades to a miss.
func (c *MultiLayerCache) Get(ctx context.Context, key string) (*actor.Snapshot, bool) {
	if key == "" || c.closed.Load() {
		return nil, false
	}

	if snap, ok := c.l1.get(key); ok {
		return snap, true
	}

	if snap, ok := c.l2.get(key); ok {
		c.l1.set(key, snap, c.cfg.L1TTL)
		return snap, true
	}

	if c.l3 == nil || ctx.Err() != nil {
		return nil, false
	}
	snap, ok, err := c.l3.get(key)
	if err != nil {
		c.tierErrs.Add(1)
		c.logger.Warn("l3 read degraded to miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c.l2.set(key, snap, c.cfg.L2TTL)
	c.l1.set(key, snap, c.cfg.L1TTL)
	return snap, true
}

// Set stores the snapshot in every tier. L1 is written synchronously, so
// an immediate Get observes the value; an L3 failure is logged and does
// not fail the call.
//
// A ttl <= 0 uses each tier's configured default.
func (c *MultiLayerCache) Set(ctx context.Context, key string, snap *actor.Snapshot, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if snap == nil {
		return ErrNilSnapshot
	}
	if c.closed.Load() {
		return ErrClosed
	}

	c.l1.set(key, snap, minTTL(ttl, c.cfg.L1TTL))
	c.l2.set(key, snap, minTTL(ttl, c.cfg.L2TTL))

	if c.l3 != nil && ctx.Err() == nil {
		if err := c.l3.set(key, snap, minTTL(ttl, c.cfg.L3TTL)); err != nil {
			c.tierErrs.Add(1)
			c.logger.Warn("l3 write failed", "key", key, "error", err)
		}
	}
	return nil
}

// Delete removes key from every tier. Returns true if any tier held it.
func (c *MultiLayerCache) Delete(ctx context.Context, key string) bool {
	if key == "" || c.closed.Load() {
		return false
	}
	removed := c.l1.delete(key)
	removed = c.l2.delete(key) || removed
	if c.l3 != nil && ctx.Err() == nil {
		ok, err := c.l3.delete(key)
		if err != nil {
			c.tierErrs.Add(1)
			c.logger.Warn("l3 delete failed", "key", key, "error", err)
		}
		removed = ok || removed
	}
	return removed
}

// Clear drops every entry from every tier.
func (c *MultiLayerCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.l1.clear()
	c.l2.clear()
	if c.l3 != nil && ctx.Err() == nil {
		if err := c.l3.clear(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns a point-in-time view of every tier's counters.
func (c *MultiLayerCache) Stats() Stats {
	s := Stats{
		L1: c.l1.stats(),
		L2: c.l2.stats(),
	}
	if c.l3 != nil {
		s.L3 = c.l3.stats()
	}
	return s
}

// HealthStatus reports per-tier and overall condition. A tier above 90%
// occupancy reports Warning; recent durable-tier errors report Critical.
func (c *MultiLayerCache) HealthStatus() HealthReport {
	report := HealthReport{}
	add := func(layer Layer, st LayerStats) {
		h := LayerHealth{Layer: layer, State: HealthOK, UsageRatio: st.UsageRatio()}
		if h.UsageRatio > warningUsageRatio {
			h.State = HealthWarning
			h.Message = fmt.Sprintf("occupancy %.0f%% of capacity", h.UsageRatio*100)
		}
		report.Layers = append(report.Layers, h)
	}
	add(LayerL1, c.l1.stats())
	add(LayerL2, c.l2.stats())
	if c.l3 != nil {
		h := LayerHealth{Layer: LayerL3, State: HealthOK}
		if c.tierErrs.Load() > 0 {
			h.State = HealthCritical
			h.Message = fmt.Sprintf("%d tier I/O errors since start", c.tierErrs.Load())
		}
		report.Layers = append(report.Layers, h)
	}

	for _, h := range report.Layers {
		if h.State > report.Overall {
			report.Overall = h.State
		}
	}
	return report
}

// L1TTL returns the fast tier's default TTL; the warmer uses it.
func (c *MultiLayerCache) L1TTL() time.Duration {
	return c.cfg.L1TTL
}

// Close releases the durable tier. The cache rejects use after Close.
func (c *MultiLayerCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.l3 != nil {
		return c.l3.close()
	}
	return nil
}

// minTTL returns requested when positive and below tierDefault, else
// tierDefault. A tier never holds an entry longer than its own default.
func minTTL(requested, tierDefault time.Duration) time.Duration {
	if requested > 0 && requested < tierDefault {
		return requested
	}
	return tierDefault
}
