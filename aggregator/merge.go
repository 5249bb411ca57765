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
	"sort"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/bucket"
	"github.com/AleutianAI/actorcore/registry"
)

// rawSeed is one subsystem's direct value for a dimension, before any
// contributions fold on top of it.
type rawSeed struct {
	value       float64
	sysPriority int64
	derived     bool
}

// merge folds the buffered subsystem outputs into a snapshot.
//
// Description:
//
//	Per dimension: the first raw seed (in ascending subsystem priority
//	order) becomes the fold's initial value; contributions fold through
//	the bucket pipeline or, when a combiner rule opts out of it, through
//	the rule's operator; modifier packs apply next; when several
//	subsystems seeded the same dimension the highest-priority seed
//	overrides the folded value outright; finally the rule's default
//	clamp and the layered effective caps bound the result. Dimensions
//	are processed in sorted name order, so the merge is deterministic
//	regardless of how the outputs were produced.
//
// Inputs:
//
//	act - The actor being resolved.
//	subs - The subsystems in ascending priority order, index-aligned
//	with outputs.
//	outputs - One slot per subsystem; nil slots are isolated failures.
//
// Outputs:
//
//	*actor.Snapshot - The merged snapshot. ProcessingTime is left for
//	the caller to fill.
func (a *Aggregator) merge(act *actor.Actor, subs []actor.Subsystem, outputs []*actor.SubsystemOutput) *actor.Snapshot {
	snap := actor.NewSnapshot(act.ID, act.Version)

	contribsByDim := make(map[string][]actor.Contribution)
	seedsByDim := make(map[string][]rawSeed)
	modsByDim := make(map[string][]actor.ModifierPack)
	derivedDims := make(map[string]bool)
	var capContribs []actor.CapContribution

	for i, out := range outputs {
		if out == nil {
			continue
		}
		snap.SubsystemsProcessed = append(snap.SubsystemsProcessed, subs[i].SystemID())
		if out.IsEmpty() {
			continue
		}
		pri := subs[i].Priority()
		for dim, v := range out.Primary {
			seedsByDim[dim] = append(seedsByDim[dim], rawSeed{value: v, sysPriority: pri})
		}
		for dim, v := range out.Derived {
			derivedDims[dim] = true
			seedsByDim[dim] = append(seedsByDim[dim], rawSeed{value: v, sysPriority: pri, derived: true})
		}
		for _, c := range out.Contributions {
			contribsByDim[c.Dimension] = append(contribsByDim[c.Dimension], c)
		}
		capContribs = append(capContribs, out.Caps...)
		for dim, mp := range out.Context {
			if !mp.IsZero() {
				modsByDim[dim] = append(modsByDim[dim], mp)
			}
		}
	}

	effCaps := a.capsProvider.EffectiveCapsAcrossLayers(capContribs)

	for _, dim := range sortedDimensions(seedsByDim, contribsByDim, modsByDim) {
		seeds := seedsByDim[dim]
		var initial float64
		hasSeed := len(seeds) > 0
		if hasSeed {
			initial = seeds[0].value
		}

		contribs := contribsByDim[dim]
		rule, hasRule := a.combiner.GetRule(dim)

		var value float64
		if hasRule && !rule.UsePipeline {
			values := make([]float64, len(contribs))
			for i, c := range contribs {
				values[i] = c.Value
			}
			value = combineValues(rule.Operator, initial, hasSeed, values)
		} else {
			value = bucket.Process(contribs, initial, nil)
		}

		for _, mp := range modsByDim[dim] {
			value = mp.Apply(value)
		}

		// Competing raw seeds: the highest-priority subsystem's value
		// replaces the folded result outright.
		if len(seeds) > 1 {
			best := seeds[0]
			for _, s := range seeds[1:] {
				if s.sysPriority > best.sysPriority {
					best = s
				}
			}
			value = best.value
		}

		if hasRule && rule.ClampDefault != nil {
			value = rule.ClampDefault.Clamp(value)
		}
		if ec, ok := effCaps[dim]; ok {
			value = ec.Clamp(value)
			snap.CapsUsed[dim] = ec
		}

		if derivedDims[dim] || registry.IsDerivedDimension(dim) {
			snap.Derived[dim] = value
		} else {
			snap.Primary[dim] = value
		}
	}

	return snap
}

// sortedDimensions returns the union of the maps' keys in sorted order.
func sortedDimensions(seeds map[string][]rawSeed, contribs map[string][]actor.Contribution, mods map[string][]actor.ModifierPack) []string {
	seen := make(map[string]struct{}, len(seeds)+len(contribs))
	for dim := range seeds {
		seen[dim] = struct{}{}
	}
	for dim := range contribs {
		seen[dim] = struct{}{}
	}
	for dim := range mods {
		seen[dim] = struct{}{}
	}
	dims := make([]string, 0, len(seen))
	for dim := range seen {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	return dims
}

// combineValues folds contribution values under an operator rule. The
// seed, when present, participates as one more sample.
func combineValues(op actor.Operator, initial float64, hasSeed bool, values []float64) float64 {
	if len(values) == 0 {
		return initial
	}
	switch op {
	case actor.OperatorMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		if hasSeed && initial > m {
			m = initial
		}
		return m
	case actor.OperatorMin, actor.OperatorIntersect:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		if hasSeed && initial < m {
			m = initial
		}
		return m
	case actor.OperatorMultiply:
		p := 1.0
		if hasSeed {
			p = initial
		}
		for _, v := range values {
			p *= v
		}
		return p
	case actor.OperatorAverage:
		sum := 0.0
		n := 0
		if hasSeed {
			sum = initial
			n = 1
		}
		for _, v := range values {
			sum += v
			n++
		}
		return sum / float64(n)
	default: // OperatorSum
		s := initial
		for _, v := range values {
			s += v
		}
		return s
	}
}
