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

import "github.com/AleutianAI/actorcore/actor"

// PrimaryDimensions lists the stock primary stats.
func PrimaryDimensions() []string {
	return []string{
		"strength", "agility", "intelligence", "vitality", "spirit", "luck",
		"health", "mana", "stamina", "experience", "level",
	}
}

// DerivedDimensions lists the stock derived stats.
func DerivedDimensions() []string {
	return []string{
		"attack_power", "defense_power", "critical_hit_chance",
		"critical_hit_damage", "attack_speed", "movement_speed",
		"casting_speed", "cooldown_reduction", "life_steal", "mana_steal",
		"damage_reduction", "elemental_resistance",
	}
}

// IsDerivedDimension reports whether dim is a stock derived stat.
func IsDerivedDimension(dim string) bool {
	for _, d := range DerivedDimensions() {
		if d == dim {
			return true
		}
	}
	return false
}

// DefaultCombinerRegistry returns a mutable registry preloaded with the
// stock pipeline rules: every known dimension folds through the bucket
// pipeline, percentage-like derived stats carry a [0,100] default clamp.
func DefaultCombinerRegistry() *CombinerRegistry {
	r := NewCombinerRegistry()

	pipeline := MergeRule{UsePipeline: true, Operator: actor.OperatorSum}
	for _, dim := range PrimaryDimensions() {
		r.rules[dim] = pipeline
	}
	for _, dim := range DerivedDimensions() {
		r.rules[dim] = pipeline
	}

	percent := actor.NewCaps(0, 100)
	for _, dim := range []string{
		"critical_hit_chance", "cooldown_reduction", "life_steal",
		"mana_steal", "damage_reduction", "elemental_resistance",
	} {
		r.rules[dim] = MergeRule{UsePipeline: true, Operator: actor.OperatorSum, ClampDefault: &percent}
	}
	return r
}

// DefaultLayerNames lists the stock cap layers ascending by priority.
func DefaultLayerNames() []string {
	return []string{"realm", "world", "event", "guild", "total"}
}

// DefaultCapLayerRegistry returns a mutable registry preloaded with the
// stock layers (realm < world < event < guild < total, no per-dimension
// bounds) and the Intersect policy.
func DefaultCapLayerRegistry() *CapLayerRegistry {
	r := NewCapLayerRegistry()
	for i, name := range DefaultLayerNames() {
		// Pre-publication insert; no lock needed yet.
		_ = r.addLayerLocked(CapLayer{Name: name, Priority: int64(i)})
	}
	return r
}
