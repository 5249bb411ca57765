// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package caps resolves cap contributions into effective per-dimension
// bounds. Resolution runs in two stages: within each configured layer the
// contributions fold onto the layer's baseline by cap mode, then the
// per-layer results combine under the registry's across-layer policy.
package caps

import (
	"math"
	"sort"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/registry"
)

// Provider computes effective caps from layer configuration plus the cap
// contributions produced during one aggregation pass.
//
// Thread Safety: Stateless apart from the registry reference; safe for
// concurrent use.
type Provider struct {
	layers *registry.CapLayerRegistry
}

// NewProvider returns a provider backed by the given layer registry.
func NewProvider(layers *registry.CapLayerRegistry) *Provider {
	return &Provider{layers: layers}
}

// LayerRegistry returns the backing registry.
func (p *Provider) LayerRegistry() *registry.CapLayerRegistry {
	return p.layers
}

// bound tracks one dimension's in-progress min/max while folding a layer.
// Hard bounds are kept separately: later folds may tighten past them but
// never loosen them.
type bound struct {
	min, max       float64
	hasMin, hasMax bool
	hardMin        float64
	hardMax        float64
	hasHardMin     bool
	hasHardMax     bool
}

func (b *bound) applyMin(mode actor.CapMode, v float64) {
	switch mode {
	case actor.CapModeBaseline:
		if !b.hasMin {
			b.min, b.hasMin = v, true
		}
	case actor.CapModeAdditive:
		if b.hasMin {
			b.min += v
		} else {
			b.min, b.hasMin = v, true
		}
	case actor.CapModeHardMin:
		if !b.hasHardMin || v > b.hardMin {
			b.hardMin, b.hasHardMin = v, true
		}
	case actor.CapModeOverride:
		b.min, b.hasMin = v, true
	}
}

func (b *bound) applyMax(mode actor.CapMode, v float64) {
	switch mode {
	case actor.CapModeBaseline:
		if !b.hasMax {
			b.max, b.hasMax = v, true
		}
	case actor.CapModeAdditive:
		if b.hasMax {
			b.max += v
		} else {
			b.max, b.hasMax = v, true
		}
	case actor.CapModeHardMax:
		if !b.hasHardMax || v < b.hardMax {
			b.hardMax, b.hasHardMax = v, true
		}
	case actor.CapModeOverride, actor.CapModeSoftMax:
		b.max, b.hasMax = v, true
	}
}

// finalize collapses the soft and hard state into a Caps. Unset bounds
// are unbounded; hard bounds always win over soft ones.
func (b *bound) finalize() actor.Caps {
	min := math.Inf(-1)
	if b.hasMin {
		min = b.min
	}
	if b.hasHardMin && b.hardMin > min {
		min = b.hardMin
	}
	max := math.Inf(1)
	if b.hasMax {
		max = b.max
	}
	if b.hasHardMax && b.hardMax < max {
		max = b.hardMax
	}
	return actor.Caps{Min: min, Max: max}
}

// EffectiveCapsWithinLayer resolves one layer's caps for every dimension
// it constrains.
//
// Description:
//
//	Seeds each dimension's bound from the layer's configured (mode, caps)
//	entry, then folds the contributions scoped to the layer, ordered by
//	priority descending (missing priorities last, ties in input order).
//	Contributions with an empty scope belong to the last (highest
//	priority) layer; a scope naming no configured layer matches nothing
//	and is dropped.
//
// Inputs:
//
//	layerName - The layer to resolve.
//	contributions - All cap contributions gathered in this pass.
//
// Outputs:
//
//	map[string]actor.Caps - Effective bound per dimension the layer
//	constrains. Empty when the layer constrains nothing.
//
// Thread Safety: Safe for concurrent use.
func (p *Provider) EffectiveCapsWithinLayer(layerName string, contributions []actor.CapContribution) map[string]actor.Caps {
	bounds := make(map[string]*bound)
	get := func(dim string) *bound {
		b, ok := bounds[dim]
		if !ok {
			b = &bound{}
			bounds[dim] = b
		}
		return b
	}

	if layer, ok := p.layers.GetLayer(layerName); ok {
		for dim, lc := range layer.Caps {
			b := get(dim)
			b.applyMin(lc.Mode, lc.Caps.Min)
			b.applyMax(lc.Mode, lc.Caps.Max)
		}
	}

	scoped := p.scopedContributions(layerName, contributions)
	sortByPriorityDesc(scoped)
	for _, c := range scoped {
		b := get(c.Dimension)
		if c.Kind == actor.CapKindMin {
			b.applyMin(c.Mode, c.Value)
		} else {
			b.applyMax(c.Mode, c.Value)
		}
	}

	out := make(map[string]actor.Caps, len(bounds))
	for dim, b := range bounds {
		out[dim] = b.finalize()
	}
	return out
}

// EffectiveCapsAcrossLayers resolves every layer and combines the results
// under the registry's across-layer policy.
//
// Intersect keeps the most restrictive range and may produce an inverted
// (empty) range when layers disagree; the caller decides how to handle
// that. Union keeps the least restrictive range. PrioritizedOverride lets
// the highest-priority layer that constrains a dimension win outright.
func (p *Provider) EffectiveCapsAcrossLayers(contributions []actor.CapContribution) map[string]actor.Caps {
	order := p.layers.GetLayerOrder()
	policy := p.layers.GetAcrossLayerPolicy()

	out := make(map[string]actor.Caps)
	for _, layerName := range order {
		layerCaps := p.EffectiveCapsWithinLayer(layerName, contributions)
		for dim, c := range layerCaps {
			prev, seen := out[dim]
			if !seen {
				out[dim] = c
				continue
			}
			switch policy {
			case actor.PolicyIntersect:
				out[dim] = prev.Intersection(c)
			case actor.PolicyUnion:
				out[dim] = prev.Union(c)
			case actor.PolicyPrioritizedOverride:
				// Layers iterate ascending; the later layer wins.
				out[dim] = c
			}
		}
	}
	return out
}

// scopedContributions filters contributions belonging to layerName. An
// empty scope resolves to the last layer in the configured order.
func (p *Provider) scopedContributions(layerName string, contributions []actor.CapContribution) []actor.CapContribution {
	order := p.layers.GetLayerOrder()
	defaultLayer := ""
	if len(order) > 0 {
		defaultLayer = order[len(order)-1]
	}

	var out []actor.CapContribution
	for _, c := range contributions {
		scope := c.Scope
		if scope == "" {
			scope = defaultLayer
		}
		if scope == layerName {
			out = append(out, c)
		}
	}
	return out
}

// sortByPriorityDesc orders cap contributions by priority descending with
// missing priorities last; the sort is stable.
func sortByPriorityDesc(contribs []actor.CapContribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		pi, pj := contribs[i].Priority, contribs[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi > *pj
		}
	})
}
