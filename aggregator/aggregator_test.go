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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/actorcore/actor"
	"github.com/AleutianAI/actorcore/cache"
	"github.com/AleutianAI/actorcore/caps"
	"github.com/AleutianAI/actorcore/registry"
)

// fakeSubsystem is a configurable subsystem for aggregator tests.
type fakeSubsystem struct {
	id       string
	priority int64
	delay    time.Duration
	err      error
	build    func(ctx context.Context, act *actor.Actor) *actor.SubsystemOutput
}

func (f *fakeSubsystem) SystemID() string { return f.id }
func (f *fakeSubsystem) Priority() int64  { return f.priority }

func (f *fakeSubsystem) Contribute(ctx context.Context, act *actor.Actor) (*actor.SubsystemOutput, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.build != nil {
		return f.build(ctx, act), nil
	}
	return actor.NewSubsystemOutput(f.id), nil
}

// testActor returns a valid actor for resolve tests.
func testActor(name string) *actor.Actor {
	return actor.NewActor(name, "human", 100)
}

// seedOutput returns a builder producing one primary seed.
func seedOutput(system, dim string, value float64) func(context.Context, *actor.Actor) *actor.SubsystemOutput {
	return func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
		out := actor.NewSubsystemOutput(system)
		out.Primary[dim] = value
		return out
	}
}

// newTestAggregator wires an aggregator with an in-memory cache and the
// given subsystems. The cache is closed via t.Cleanup.
func newTestAggregator(t *testing.T, subs []actor.Subsystem, opts ...Option) *Aggregator {
	t.Helper()

	plugins := registry.NewPluginRegistry()
	for _, s := range subs {
		require.NoError(t, plugins.Register(s))
	}

	c, err := cache.New(cache.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	agg, err := New(plugins, nil, caps.NewProvider(registry.NewCapLayerRegistry()), c, opts...)
	require.NoError(t, err)
	return agg
}

func TestNewRequiredCollaborators(t *testing.T) {
	provider := caps.NewProvider(registry.NewCapLayerRegistry())

	_, err := New(nil, nil, provider, nil)
	assert.ErrorIs(t, err, ErrNilRegistry)

	_, err = New(registry.NewPluginRegistry(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilCapsProvider)

	agg, err := New(registry.NewPluginRegistry(), nil, provider, nil)
	require.NoError(t, err)
	assert.NotNil(t, agg)
}

func TestResolveBucketPipeline(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: seedOutput("base", "strength", 10)},
		&fakeSubsystem{id: "gear", priority: 2, build: func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			out := actor.NewSubsystemOutput("gear")
			out.AddContribution(actor.NewContribution("strength", actor.BucketFlat, 5, "gear"))
			out.AddContribution(actor.NewContribution("strength", actor.BucketMult, 2, "gear"))
			return out
		}},
	}
	agg := newTestAggregator(t, subs)

	act := testActor("hero")
	snap, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)

	// (10 + 5) * 2
	assert.InDelta(t, 30.0, snap.Primary["strength"], 1e-9)
	assert.ElementsMatch(t, []string{"base", "gear"}, snap.SubsystemsProcessed)
	assert.Equal(t, act.ID, snap.ActorID)
	assert.Equal(t, act.Version, snap.Version)
}

func TestResolveCacheHit(t *testing.T) {
	calls := 0
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			calls++
			out := actor.NewSubsystemOutput("base")
			out.Primary["vitality"] = 50
			return out
		}},
	}
	agg := newTestAggregator(t, subs)
	act := testActor("hero")

	first, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)
	second, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second resolve must come from the cache")
	assert.Equal(t, first.Primary["vitality"], second.Primary["vitality"])

	stats := agg.Stats()
	assert.Equal(t, int64(2), stats.TotalResolutions)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
}

func TestResolveVersionBumpMisses(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: seedOutput("base", "mana", 100)},
	}
	agg := newTestAggregator(t, subs)
	act := testActor("hero")

	_, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)

	act.Touch()
	_, err = agg.Resolve(context.Background(), act)
	require.NoError(t, err)

	assert.Equal(t, int64(2), agg.Stats().CacheMisses)
}

func TestResolveIsolatesFailingSubsystem(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "healthy", priority: 1, build: seedOutput("healthy", "agility", 20)},
		&fakeSubsystem{id: "broken", priority: 2, err: errors.New("backend down")},
	}
	agg := newTestAggregator(t, subs)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err, "one failing subsystem must not fail the pass")

	assert.InDelta(t, 20.0, snap.Primary["agility"], 1e-9)
	assert.Equal(t, []string{"healthy"}, snap.SubsystemsProcessed)
	assert.Equal(t, int64(1), agg.Stats().ErrorCount)
}

func TestResolveFailFast(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "healthy", priority: 1, build: seedOutput("healthy", "agility", 20)},
		&fakeSubsystem{id: "broken", priority: 2, err: errors.New("backend down")},
	}
	agg := newTestAggregator(t, subs, WithFailFast())

	_, err := agg.Resolve(context.Background(), testActor("hero"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubsystemFailed)
	assert.Contains(t, err.Error(), "broken")
}

func TestResolveCancellationWritesNothing(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "slow", priority: 1, delay: time.Second, build: seedOutput("slow", "luck", 7)},
	}
	agg := newTestAggregator(t, subs)
	act := testActor("hero")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := agg.Resolve(ctx, act)
	require.Error(t, err)

	// The aborted pass must not have published a snapshot.
	subs[0].(*fakeSubsystem).delay = 0
	snap, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, snap.Primary["luck"], 1e-9)
	assert.Equal(t, int64(0), agg.Stats().CacheHits)
}

func TestResolveStaleServe(t *testing.T) {
	slow := &fakeSubsystem{id: "base", priority: 1, build: seedOutput("base", "stamina", 40)}
	agg := newTestAggregator(t, []actor.Subsystem{slow},
		WithTimeBudget(50*time.Millisecond), WithStaleServes())
	act := testActor("hero")

	fresh, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err)

	act.Touch()
	slow.delay = time.Second
	snap, err := agg.Resolve(context.Background(), act)
	require.NoError(t, err, "budget overrun with stale serving must answer")

	assert.Equal(t, fresh.Version, snap.Version, "must be the previous snapshot")
	assert.InDelta(t, 40.0, snap.Primary["stamina"], 1e-9)
	assert.Equal(t, int64(1), agg.Stats().StaleServes)
}

func TestResolveStaleCapacityEviction(t *testing.T) {
	slow := &fakeSubsystem{id: "base", priority: 1, build: seedOutput("base", "stamina", 40)}
	agg := newTestAggregator(t, []actor.Subsystem{slow},
		WithTimeBudget(50*time.Millisecond), WithStaleServes(), WithStaleCapacity(1))

	hero := testActor("hero")
	_, err := agg.Resolve(context.Background(), hero)
	require.NoError(t, err)

	// Resolving a second actor evicts hero's retained snapshot.
	_, err = agg.Resolve(context.Background(), testActor("rival"))
	require.NoError(t, err)

	hero.Touch()
	slow.delay = time.Second
	_, err = agg.Resolve(context.Background(), hero)
	require.Error(t, err, "nothing retained to serve after eviction")
	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestResolveBudgetExceededWithoutStale(t *testing.T) {
	slow := &fakeSubsystem{id: "base", priority: 1, delay: time.Second,
		build: seedOutput("base", "stamina", 40)}
	agg := newTestAggregator(t, []actor.Subsystem{slow}, WithTimeBudget(30*time.Millisecond))

	_, err := agg.Resolve(context.Background(), testActor("hero"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestResolveSeedPrecedence(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "low", priority: 1, build: seedOutput("low", "level", 5)},
		&fakeSubsystem{id: "high", priority: 9, build: seedOutput("high", "level", 12)},
	}
	agg := newTestAggregator(t, subs)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err)
	assert.InDelta(t, 12.0, snap.Primary["level"], 1e-9,
		"the highest-priority subsystem's seed wins")
}

func TestResolveCombinerOperator(t *testing.T) {
	combiner := registry.NewCombinerRegistry()
	require.NoError(t, combiner.SetRule("movement_speed", registry.MergeRule{
		Operator: actor.OperatorMax,
	}))

	plugins := registry.NewPluginRegistry()
	require.NoError(t, plugins.Register(&fakeSubsystem{id: "boots", priority: 1,
		build: func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			out := actor.NewSubsystemOutput("boots")
			out.AddContribution(actor.NewContribution("movement_speed", actor.BucketFlat, 110, "boots"))
			out.AddContribution(actor.NewContribution("movement_speed", actor.BucketFlat, 130, "boots"))
			return out
		}}))

	agg, err := New(plugins, combiner, caps.NewProvider(registry.NewCapLayerRegistry()), nil)
	require.NoError(t, err)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err)
	assert.InDelta(t, 130.0, snap.Derived["movement_speed"], 1e-9)
}

func TestResolveAppliesEffectiveCaps(t *testing.T) {
	layers := registry.NewCapLayerRegistry()
	require.NoError(t, layers.AddLayer(registry.CapLayer{Name: "total", Priority: 10}))

	plugins := registry.NewPluginRegistry()
	require.NoError(t, plugins.Register(&fakeSubsystem{id: "base", priority: 1,
		build: func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			out := actor.NewSubsystemOutput("base")
			out.Primary["strength"] = 500
			out.AddCap(actor.NewCapContribution("base", "strength", actor.CapModeHardMax, actor.CapKindMax, 100))
			return out
		}}))

	agg, err := New(plugins, nil, caps.NewProvider(layers), nil)
	require.NoError(t, err)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, snap.Primary["strength"], 1e-9)

	used, ok := snap.CapsUsed["strength"]
	require.True(t, ok)
	assert.InDelta(t, 100.0, used.Max, 1e-9)
}

func TestResolveModifierPack(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: func(_ context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			out := actor.NewSubsystemOutput("base")
			out.Primary["attack_power"] = 100
			out.Context = map[string]actor.ModifierPack{
				"attack_power": {AdditivePercent: []float64{10}, Multipliers: []float64{2}, PostAdd: []float64{5}},
			}
			return out
		}},
	}
	agg := newTestAggregator(t, subs)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err)
	// (100 + 100*10%) * 2 + 5; attack_power is a derived dimension.
	assert.InDelta(t, 225.0, snap.Derived["attack_power"], 1e-9)
}

func TestResolveWithContextDeliversData(t *testing.T) {
	var seen map[string]any
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: func(ctx context.Context, _ *actor.Actor) *actor.SubsystemOutput {
			seen = CallContext(ctx)
			out := actor.NewSubsystemOutput("base")
			out.Primary["spirit"] = 1
			return out
		}},
	}
	agg := newTestAggregator(t, subs)

	_, err := agg.ResolveWithContext(context.Background(), testActor("hero"),
		map[string]any{"encounter": "raid"})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "raid", seen["encounter"])
}

func TestResolveBatchPreservesOrder(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, build: func(_ context.Context, act *actor.Actor) *actor.SubsystemOutput {
			out := actor.NewSubsystemOutput("base")
			out.Primary["health"] = float64(len(act.Name))
			return out
		}},
	}
	agg := newTestAggregator(t, subs, WithMaxConcurrency(2))

	actors := []*actor.Actor{
		testActor("first"),
		testActor("second"),
		testActor("third"),
	}
	snaps, err := agg.ResolveBatch(context.Background(), actors)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for i, snap := range snaps {
		assert.Equal(t, actors[i].ID, snap.ActorID)
	}
}

func TestResolveInvalidActor(t *testing.T) {
	agg := newTestAggregator(t, nil)

	_, err := agg.Resolve(context.Background(), &actor.Actor{})
	require.Error(t, err)
}

func TestResolveEmptyRegistry(t *testing.T) {
	agg := newTestAggregator(t, nil)

	snap, err := agg.Resolve(context.Background(), testActor("hero"))
	require.NoError(t, err)
	assert.Empty(t, snap.Primary)
	assert.Empty(t, snap.Derived)
}

func TestResolveConcurrentSameActor(t *testing.T) {
	subs := []actor.Subsystem{
		&fakeSubsystem{id: "base", priority: 1, delay: 20 * time.Millisecond,
			build: seedOutput("base", "strength", 10)},
	}
	agg := newTestAggregator(t, subs)
	act := testActor("hero")

	const n = 8
	results := make([]*actor.Snapshot, n)
	errs := make([]error, n)
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		go func() {
			results[i], errs[i] = agg.Resolve(context.Background(), act)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.InDelta(t, 10.0, results[i].Primary["strength"], 1e-9)
	}
}
