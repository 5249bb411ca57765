// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package caps

import (
	"math"
	"testing"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/registry"
)

func capContrib(dim string, mode actor.CapMode, kind string, value float64, scope string) actor.CapContribution {
	c := actor.NewCapContribution("test", dim, mode, kind, value)
	c.Scope = scope
	return c
}

func twoLayerRegistry(t *testing.T, policy actor.AcrossLayerPolicy) *registry.CapLayerRegistry {
	t.Helper()
	r, err := registry.LoadedCapLayerRegistry([]registry.CapLayer{
		{Name: "world", Priority: 1},
		{Name: "total", Priority: 2},
	}, policy)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return r
}

func TestWithinLayerBaselineAndHardCaps(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMin, 0, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 200, "world"),
		capContrib("strength", actor.CapModeHardMax, actor.CapKindMax, 150, "world"),
	}

	got := p.EffectiveCapsWithinLayer("world", contribs)
	c, ok := got["strength"]
	if !ok {
		t.Fatal("strength missing from layer resolution")
	}
	if c.Min != 0 || c.Max != 150 {
		t.Errorf("caps = %+v, want {0 150}", c)
	}
}

func TestWithinLayerHardMaxCannotBeLoosened(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("health", actor.CapModeHardMax, actor.CapKindMax, 100, "world"),
		capContrib("health", actor.CapModeOverride, actor.CapKindMax, 500, "world"),
	}

	got := p.EffectiveCapsWithinLayer("world", contribs)
	if c := got["health"]; c.Max != 100 {
		t.Errorf("hard max loosened: %+v", c)
	}
}

func TestWithinLayerAdditiveWidens(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("mana", actor.CapModeBaseline, actor.CapKindMax, 100, "world"),
		capContrib("mana", actor.CapModeAdditive, actor.CapKindMax, 50, "world"),
	}

	got := p.EffectiveCapsWithinLayer("world", contribs)
	if c := got["mana"]; c.Max != 150 {
		t.Errorf("additive max = %+v, want 150", c)
	}
}

func TestWithinLayerUnsetBoundIsUnbounded(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("luck", actor.CapModeHardMax, actor.CapKindMax, 10, "world"),
	}

	got := p.EffectiveCapsWithinLayer("world", contribs)
	c := got["luck"]
	if !math.IsInf(c.Min, -1) {
		t.Errorf("min should be unbounded, got %v", c.Min)
	}
	if c.Max != 10 {
		t.Errorf("max = %v, want 10", c.Max)
	}
}

func TestEmptyScopeResolvesToLastLayer(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("spirit", actor.CapModeBaseline, actor.CapKindMax, 77, ""),
	}

	if got := p.EffectiveCapsWithinLayer("world", contribs); len(got) != 0 {
		t.Errorf("world should see nothing, got %v", got)
	}
	got := p.EffectiveCapsWithinLayer("total", contribs)
	if c := got["spirit"]; c.Max != 77 {
		t.Errorf("total layer caps = %+v", c)
	}
}

func TestUnknownScopeIsDropped(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("spirit", actor.CapModeBaseline, actor.CapKindMax, 77, "no-such-layer"),
	}
	got := p.EffectiveCapsAcrossLayers(contribs)
	if _, ok := got["spirit"]; ok {
		t.Errorf("unknown scope should resolve nothing: %v", got)
	}
}

func TestAcrossLayersIntersect(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyIntersect))

	contribs := []actor.CapContribution{
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMin, 0, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 200, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMin, 50, "total"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 150, "total"),
	}

	got := p.EffectiveCapsAcrossLayers(contribs)
	c := got["strength"]
	if c.Min != 50 || c.Max != 150 {
		t.Errorf("intersected caps = %+v, want {50 150}", c)
	}
}

func TestAcrossLayersUnion(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyUnion))

	contribs := []actor.CapContribution{
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMin, 0, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 100, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMin, 50, "total"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 150, "total"),
	}

	got := p.EffectiveCapsAcrossLayers(contribs)
	c := got["strength"]
	if c.Min != 0 || c.Max != 150 {
		t.Errorf("union caps = %+v, want {0 150}", c)
	}
}

func TestAcrossLayersPrioritizedOverride(t *testing.T) {
	p := NewProvider(twoLayerRegistry(t, actor.PolicyPrioritizedOverride))

	contribs := []actor.CapContribution{
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 100, "world"),
		capContrib("strength", actor.CapModeBaseline, actor.CapKindMax, 300, "total"),
	}

	got := p.EffectiveCapsAcrossLayers(contribs)
	if c := got["strength"]; c.Max != 300 {
		t.Errorf("override caps = %+v, want max 300", c)
	}
}

func TestLayerConfiguredBaselineSeedsResolution(t *testing.T) {
	r, err := registry.LoadedCapLayerRegistry([]registry.CapLayer{
		{
			Name:     "world",
			Priority: 1,
			Caps: map[string]registry.LayerCap{
				"level": {Mode: actor.CapModeBaseline, Caps: actor.NewCaps(1, 60)},
			},
		},
	}, actor.PolicyIntersect)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	p := NewProvider(r)

	got := p.EffectiveCapsAcrossLayers(nil)
	c, ok := got["level"]
	if !ok || c.Min != 1 || c.Max != 60 {
		t.Errorf("configured baseline = %+v %v, want {1 60}", c, ok)
	}
}
