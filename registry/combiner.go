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
	"sync"

	"github.com/AleutianAI/actorcore/actor"
)

// MergeRule describes how one dimension's contributions combine when the
// plain bucket pipeline is not the right fold.
type MergeRule struct {
	// UsePipeline keeps the standard bucket fold; the rule then only
	// supplies ClampDefault.
	UsePipeline bool `json:"use_pipeline"`

	// Operator combines contribution values when UsePipeline is false.
	Operator actor.Operator `json:"operator"`

	// ClampDefault optionally bounds the combined value before layered
	// caps apply.
	ClampDefault *actor.Caps `json:"clamp_default,omitempty"`
}

// CombinerRegistry maps dimensions to merge rules.
//
// A registry built from external configuration is sealed with Seal();
// after that every mutation fails with ErrRegistryImmutable.
//
// Thread Safety: Safe for concurrent use.
type CombinerRegistry struct {
	mu     sync.RWMutex
	rules  map[string]MergeRule
	sealed bool
}

// NewCombinerRegistry returns an empty, mutable combiner registry.
func NewCombinerRegistry() *CombinerRegistry {
	return &CombinerRegistry{
		rules: make(map[string]MergeRule),
	}
}

// LoadedCombinerRegistry returns a sealed registry holding the given
// rules, as handed over by an external configuration loader. The map is
// copied; the caller keeps ownership of its argument.
func LoadedCombinerRegistry(rules map[string]MergeRule) (*CombinerRegistry, error) {
	r := NewCombinerRegistry()
	for dim, rule := range rules {
		if dim == "" {
			return nil, fmt.Errorf("%w: merge rule with empty dimension", ErrInvalidConfig)
		}
		if rule.ClampDefault != nil && !rule.ClampDefault.IsValid() {
			return nil, fmt.Errorf("%w: inverted clamp_default for %s", ErrInvalidConfig, dim)
		}
		r.rules[dim] = rule
	}
	r.sealed = true
	return r, nil
}

// GetRule returns the merge rule for a dimension, or false when the
// dimension uses plain bucket folding.
func (r *CombinerRegistry) GetRule(dimension string) (MergeRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[dimension]
	return rule, ok
}

// SetRule installs a rule for a dimension.
//
// Fails with ErrRegistryImmutable on a sealed registry; the registry is
// left untouched.
func (r *CombinerRegistry) SetRule(dimension string, rule MergeRule) error {
	if dimension == "" {
		return fmt.Errorf("%w: empty dimension", ErrInvalidConfig)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistryImmutable
	}
	r.rules[dimension] = rule
	return nil
}

// Dimensions returns the dimensions that carry an explicit rule.
func (r *CombinerRegistry) Dimensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rules))
	for dim := range r.rules {
		out = append(out, dim)
	}
	return out
}

// Seal makes the registry read-only. Sealing is one-way.
func (r *CombinerRegistry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// IsSealed reports whether the registry rejects mutation.
func (r *CombinerRegistry) IsSealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}
