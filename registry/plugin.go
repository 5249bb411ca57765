// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry holds the three lookup tables the aggregator consults:
// the plugin registry of subsystems, the combiner registry of per-dimension
// merge rules, and the cap-layer registry of layered bounds.
//
// All three are read-mostly. The plugin registry mutates only at startup
// or reconfiguration; the combiner and cap-layer registries can be sealed
// after loading from external configuration, after which every mutation
// fails with ErrRegistryImmutable.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/telemetry"
)

// PluginRegistry holds registered subsystems keyed by system id.
//
// Thread Safety: Safe for concurrent use. Reads take a shared lock;
// mutation is expected only during setup or reconfiguration.
type PluginRegistry struct {
	mu      sync.RWMutex
	byID    map[string]actor.Subsystem
	ordered []actor.Subsystem // ascending priority, maintained on mutation

	metrics *telemetry.Metrics
}

// PluginOption customizes a PluginRegistry.
type PluginOption func(*PluginRegistry)

// WithMetrics attaches telemetry instruments. Register, Unregister, and
// GetByID count on RegistryOpsTotal, tagged with the operation name.
func WithMetrics(m *telemetry.Metrics) PluginOption {
	return func(r *PluginRegistry) {
		r.metrics = m
	}
}

// NewPluginRegistry returns an empty plugin registry.
func NewPluginRegistry(opts ...PluginOption) *PluginRegistry {
	r := &PluginRegistry{
		byID: make(map[string]actor.Subsystem),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a subsystem.
//
// Fails with ErrDuplicateSystem if the id is already present; the existing
// registration is left untouched.
func (r *PluginRegistry) Register(s actor.Subsystem) error {
	if s == nil {
		return ErrNilSubsystem
	}
	id := s.SystemID()
	if id == "" {
		return ErrEmptySystemID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, id)
	}
	r.byID[id] = s
	r.ordered = append(r.ordered, s)
	r.sortLocked()
	r.recordOp("register")
	return nil
}

// Unregister removes the subsystem with the given id.
func (r *PluginRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return fmt.Errorf("%w: %s", ErrSystemNotFound, id)
	}
	delete(r.byID, id)
	for i, s := range r.ordered {
		if s.SystemID() == id {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
	r.recordOp("unregister")
	return nil
}

// GetByID returns the subsystem with the given id, or false.
func (r *PluginRegistry) GetByID(id string) (actor.Subsystem, bool) {
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	r.recordOp("lookup")
	return s, ok
}

// GetByPriority returns all subsystems ordered by ascending priority.
// Lower priority contributes earlier. The returned slice is a copy.
func (r *PluginRegistry) GetByPriority() []actor.Subsystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]actor.Subsystem, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// GetByPriorityRange returns subsystems with min <= priority <= max,
// ordered ascending.
func (r *PluginRegistry) GetByPriorityRange(min, max int64) []actor.Subsystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []actor.Subsystem
	for _, s := range r.ordered {
		p := s.Priority()
		if p >= min && p <= max {
			out = append(out, s)
		}
	}
	return out
}

// IsRegistered reports whether a subsystem with the given id exists.
func (r *PluginRegistry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Count returns the number of registered subsystems.
func (r *PluginRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// SystemIDs returns the registered ids sorted lexically.
func (r *PluginRegistry) SystemIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// recordOp counts one registry operation when metrics are attached.
func (r *PluginRegistry) recordOp(op string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RegistryOpsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("operation", op)))
}

// sortLocked re-sorts the ordered slice. Ties on priority break by system
// id so iteration order is stable across processes.
//
// Must be called with the write lock held.
func (r *PluginRegistry) sortLocked() {
	sort.SliceStable(r.ordered, func(i, j int) bool {
		pi, pj := r.ordered[i].Priority(), r.ordered[j].Priority()
		if pi != pj {
			return pi < pj
		}
		return r.ordered[i].SystemID() < r.ordered[j].SystemID()
	})
}
