// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bucket folds a dimension's contributions into a single scalar.
//
// The fold is a pure function of its inputs: given the same contribution
// multiset, initial value, and caps, it always produces the same result,
// regardless of the order contributions arrived in.
package bucket

import (
	"math"
	"sort"

	"github.com/AleutianAI/actorcore/actor"
)

// ProcessingOrder returns the buckets in fold order.
func ProcessingOrder() []actor.Bucket {
	return []actor.Bucket{
		actor.BucketFlat,
		actor.BucketMult,
		actor.BucketPostAdd,
		actor.BucketOverride,
		actor.BucketExponential,
		actor.BucketLogarithmic,
		actor.BucketConditional,
	}
}

// Process folds contributions into one value.
//
// Description:
//
//	Sorts the contributions by (bucket rank, priority descending) — a
//	missing priority sorts last within its bucket, ties keep input order —
//	then folds bucket by bucket:
//
//	  Flat:     value += Σv
//	  Mult:     value *= Πv
//	  PostAdd:  value += Σv
//	  Override: value = v of the LAST element of the group after the sort
//	            (the lowest explicit priority, or the last-inserted when no
//	            priority is set)
//
//	The extended buckets follow: Exponential (value = value^v),
//	Logarithmic (value *= ln(v+1)), Conditional (flat add). If caps is
//	non-nil the final value is clamped into [caps.Min, caps.Max].
//
//	The Override rule is intentionally not "highest priority wins"; it is
//	the long-observed behavior and downstream balancing depends on it.
//
// Inputs:
//
//	contributions - The contributions to fold. May be empty or nil. An
//	entry carrying an unknown bucket is ignored.
//	initial - The starting value.
//	caps - Optional clamp applied after the fold. Nil means unbounded.
//
// Outputs:
//
//	float64 - The folded value. An empty input returns initial unchanged.
//
// Thread Safety: Pure function; safe for concurrent use.
func Process(contributions []actor.Contribution, initial float64, caps *actor.Caps) float64 {
	// Identity law: an empty fold returns initial untouched, caps included.
	if len(contributions) == 0 {
		return initial
	}

	// An out-of-range bucket ranks below every real one and would stall
	// the sequential group scan, shadowing the valid contributions behind
	// it. Drop such entries instead.
	sorted := make([]actor.Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.Bucket.IsValid() {
			sorted = append(sorted, c)
		}
	}
	sortDeterministic(sorted)

	value := initial
	idx := 0
	for _, b := range ProcessingOrder() {
		start := idx
		for idx < len(sorted) && sorted[idx].Bucket == b {
			idx++
		}
		if start == idx {
			continue
		}
		value = applyBucket(value, b, sorted[start:idx])
	}

	if caps != nil {
		value = caps.Clamp(value)
	}
	return value
}

// sortDeterministic orders contributions by bucket rank ascending, then
// priority descending with nil priorities last. The sort is stable, so
// remaining ties keep their input order.
func sortDeterministic(contribs []actor.Contribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		ri, rj := contribs[i].Bucket.Rank(), contribs[j].Bucket.Rank()
		if ri != rj {
			return ri < rj
		}
		pi, pj := contribs[i].Priority, contribs[j].Priority
		switch {
		case pi == nil && pj == nil:
			return false
		case pi == nil:
			return false // nil sorts after explicit
		case pj == nil:
			return true
		default:
			return *pi > *pj
		}
	})
}

func applyBucket(value float64, b actor.Bucket, group []actor.Contribution) float64 {
	switch b {
	case actor.BucketFlat, actor.BucketConditional:
		for _, c := range group {
			value += c.Value
		}
	case actor.BucketMult:
		for _, c := range group {
			value *= c.Value
		}
	case actor.BucketPostAdd:
		for _, c := range group {
			value += c.Value
		}
	case actor.BucketOverride:
		value = group[len(group)-1].Value
	case actor.BucketExponential:
		for _, c := range group {
			value = math.Pow(value, c.Value)
		}
	case actor.BucketLogarithmic:
		for _, c := range group {
			value *= math.Log(c.Value + 1)
		}
	}
	return value
}
