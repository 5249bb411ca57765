// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/actorcore/actor"
)

// LayerCap is a layer's configured bound for one dimension.
type LayerCap struct {
	Mode actor.CapMode `json:"mode"`
	Caps actor.Caps    `json:"caps"`
}

// CapLayer is one named layer of caps: a priority and a per-dimension
// bound table.
type CapLayer struct {
	Name string `json:"name"`

	// Priority orders layers; lower resolves earlier. Under the
	// PrioritizedOverride policy the highest-priority layer wins.
	Priority int64 `json:"priority"`

	// Caps maps dimension to the layer's configured bound.
	Caps map[string]LayerCap `json:"caps,omitempty"`
}

// CapLayerRegistry holds the named, priority-ordered cap layers and the
// policy that combines them.
//
// A registry built from external configuration is sealed; every mutation
// on a sealed registry fails with ErrRegistryImmutable.
//
// Thread Safety: Safe for concurrent use.
type CapLayerRegistry struct {
	mu     sync.RWMutex
	layers map[string]*CapLayer
	order  []string // ascending by layer priority
	policy actor.AcrossLayerPolicy
	sealed bool
}

// NewCapLayerRegistry returns a mutable registry with no layers and the
// Intersect policy.
func NewCapLayerRegistry() *CapLayerRegistry {
	return &CapLayerRegistry{
		layers: make(map[string]*CapLayer),
		policy: actor.PolicyIntersect,
	}
}

// LoadedCapLayerRegistry returns a sealed registry holding the given
// layers and policy, as handed over by an external configuration loader.
func LoadedCapLayerRegistry(layers []CapLayer, policy actor.AcrossLayerPolicy) (*CapLayerRegistry, error) {
	r := NewCapLayerRegistry()
	r.policy = policy
	for i := range layers {
		if err := r.addLayerLocked(layers[i]); err != nil {
			return nil, err
		}
	}
	r.sealed = true
	return r, nil
}

// AddLayer installs a layer. Fails on a sealed registry or a duplicate
// layer name.
func (r *CapLayerRegistry) AddLayer(layer CapLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistryImmutable
	}
	return r.addLayerLocked(layer)
}

// addLayerLocked validates and inserts. Must be called with the write
// lock held (or before the registry is published).
func (r *CapLayerRegistry) addLayerLocked(layer CapLayer) error {
	if layer.Name == "" {
		return fmt.Errorf("%w: layer with empty name", ErrInvalidConfig)
	}
	if _, exists := r.layers[layer.Name]; exists {
		return fmt.Errorf("%w: duplicate layer %s", ErrInvalidConfig, layer.Name)
	}
	for dim, lc := range layer.Caps {
		if !lc.Mode.IsValid() {
			return fmt.Errorf("%w: layer %s dimension %s: unknown cap mode", ErrInvalidConfig, layer.Name, dim)
		}
	}
	cp := layer
	cp.Caps = make(map[string]LayerCap, len(layer.Caps))
	for dim, lc := range layer.Caps {
		cp.Caps[dim] = lc
	}
	r.layers[layer.Name] = &cp
	r.order = append(r.order, layer.Name)
	r.sortOrderLocked()
	return nil
}

// GetLayerOrder returns the layer names ascending by configured priority.
func (r *CapLayerRegistry) GetLayerOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SetLayerOrder replaces the layer priorities to match the given order.
//
// Fails with ErrRegistryImmutable on a sealed registry.
func (r *CapLayerRegistry) SetLayerOrder(order []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistryImmutable
	}
	for _, name := range order {
		if _, ok := r.layers[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLayer, name)
		}
	}
	if len(order) != len(r.layers) {
		return fmt.Errorf("%w: order names %d of %d layers", ErrInvalidConfig, len(order), len(r.layers))
	}
	for i, name := range order {
		r.layers[name].Priority = int64(i)
	}
	r.order = append(r.order[:0], order...)
	return nil
}

// GetLayer returns the named layer's configured caps, or false.
func (r *CapLayerRegistry) GetLayer(name string) (CapLayer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layers[name]
	if !ok {
		return CapLayer{}, false
	}
	cp := *l
	cp.Caps = make(map[string]LayerCap, len(l.Caps))
	for dim, lc := range l.Caps {
		cp.Caps[dim] = lc
	}
	return cp, true
}

// GetAcrossLayerPolicy returns the configured combination policy.
func (r *CapLayerRegistry) GetAcrossLayerPolicy() actor.AcrossLayerPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetAcrossLayerPolicy changes the combination policy.
//
// Fails with ErrRegistryImmutable on a sealed registry.
func (r *CapLayerRegistry) SetAcrossLayerPolicy(p actor.AcrossLayerPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistryImmutable
	}
	r.policy = p
	return nil
}

// Seal makes the registry read-only. Sealing is one-way.
func (r *CapLayerRegistry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// IsSealed reports whether the registry rejects mutation.
func (r *CapLayerRegistry) IsSealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// sortOrderLocked re-sorts order by layer priority ascending, name as the
// tie-break. Must be called with the write lock held.
func (r *CapLayerRegistry) sortOrderLocked() {
	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.layers[r.order[i]], r.layers[r.order[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
}
