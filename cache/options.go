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
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config controls the tiered cache.
//
// All fields have sensible defaults via DefaultConfig(); tests use
// InMemoryConfig() to avoid touching disk.
type Config struct {
	// L1MaxEntries bounds the fast tier.
	L1MaxEntries int `json:"l1_max_entries" validate:"gt=0"`

	// L2MaxEntries bounds the sharded tier.
	L2MaxEntries int `json:"l2_max_entries" validate:"gt=0"`

	// L2Shards is the number of L2 shards; must be a power of two.
	L2Shards int `json:"l2_shards" validate:"gt=0"`

	// DefaultTTL applies per tier when Set is called with ttl <= 0.
	L1TTL time.Duration `json:"l1_ttl" validate:"gt=0"`
	L2TTL time.Duration `json:"l2_ttl" validate:"gt=0"`
	L3TTL time.Duration `json:"l3_ttl" validate:"gt=0"`

	// L3Enabled switches the durable tier on.
	L3Enabled bool `json:"l3_enabled"`

	// L3Path is the BadgerDB directory. Ignored when L3InMemory is set.
	L3Path string `json:"l3_path"`

	// L3InMemory runs the durable tier in memory (tests).
	L3InMemory bool `json:"l3_in_memory"`

	// L3SyncWrites makes every L3 write durable before returning.
	L3SyncWrites bool `json:"l3_sync_writes"`

	// L3GCInterval spaces value-log garbage collection runs. Zero
	// disables the GC goroutine.
	L3GCInterval time.Duration `json:"l3_gc_interval"`

	// L3GCDiscardRatio is the reclaim threshold handed to Badger.
	L3GCDiscardRatio float64 `json:"l3_gc_discard_ratio" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the production defaults: 1k/10k/100k entries with
// TTLs growing by tier.
func DefaultConfig() Config {
	return Config{
		L1MaxEntries:     1000,
		L2MaxEntries:     10000,
		L2Shards:         16,
		L1TTL:            5 * time.Minute,
		L2TTL:            30 * time.Minute,
		L3TTL:            time.Hour,
		L3Enabled:        true,
		L3Path:           "/var/lib/actorcore/cache",
		L3SyncWrites:     false,
		L3GCInterval:     5 * time.Minute,
		L3GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a config suitable for tests: small tiers, short
// TTLs, L3 in memory.
func InMemoryConfig() Config {
	cfg := DefaultConfig()
	cfg.L1MaxEntries = 100
	cfg.L2MaxEntries = 1000
	cfg.L1TTL = time.Minute
	cfg.L2TTL = 5 * time.Minute
	cfg.L3TTL = 10 * time.Minute
	cfg.L3InMemory = true
	cfg.L3Path = ""
	cfg.L3GCInterval = 0
	return cfg
}

var validateConfig = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config's struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validateConfig.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.L2Shards&(c.L2Shards-1) != 0 {
		return fmt.Errorf("%w: l2_shards %d is not a power of two", ErrInvalidConfig, c.L2Shards)
	}
	if c.L1TTL > c.L2TTL || c.L2TTL > c.L3TTL {
		return fmt.Errorf("%w: tier TTLs must not shrink downward (l1 %v, l2 %v, l3 %v)",
			ErrInvalidConfig, c.L1TTL, c.L2TTL, c.L3TTL)
	}
	if c.L3Enabled && !c.L3InMemory && c.L3Path == "" {
		return fmt.Errorf("%w: l3 enabled without a path", ErrInvalidConfig)
	}
	return nil
}

// Option customizes a MultiLayerCache.
type Option func(*MultiLayerCache)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *MultiLayerCache) {
		if l != nil {
			c.logger = l
		}
	}
}
