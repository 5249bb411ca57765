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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/actorcore/actor"
)

func TestWarmerRecomputesMissingKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	w := NewWarmer(c)

	fetched := 0
	fetch := func(_ context.Context, key string) (*actor.Snapshot, error) {
		fetched++
		return snap("a", 1), nil
	}

	require.NoError(t, w.Warm(ctx, []string{"a:1", "a:2"}, fetch))

	assert.Equal(t, 2, fetched)
	for _, key := range []string{"a:1", "a:2"} {
		_, ok := c.l1.get(key)
		assert.True(t, ok, "%s should be resident in L1", key)
	}

	st := w.Stats()
	assert.Equal(t, int64(2), st.TotalOperations)
	assert.Equal(t, int64(2), st.Successes)
	assert.Equal(t, 1.0, st.SuccessRate())
	assert.False(t, st.LastWarming.IsZero())
}

func TestWarmerPromotesFromLowerTiersWithoutFetch(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	w := NewWarmer(c)

	require.NoError(t, c.l3.set("a:1", snap("a", 1), time.Minute))

	require.NoError(t, w.Warm(ctx, []string{"a:1"}, nil))

	_, ok := c.l1.get("a:1")
	assert.True(t, ok, "warming should promote from L3 into L1")
	assert.Equal(t, int64(1), w.Stats().Successes)
}

func TestWarmerCountsFailures(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	w := NewWarmer(c)

	fetch := func(_ context.Context, key string) (*actor.Snapshot, error) {
		return nil, errors.New("backend down")
	}
	require.NoError(t, w.Warm(ctx, []string{"a:1"}, fetch))

	st := w.Stats()
	assert.Equal(t, int64(1), st.Failures)
	assert.Equal(t, 1.0, st.FailureRate())
}

func TestWarmerRejectsConcurrentRuns(t *testing.T) {
	c := newTestCache(t)
	w := NewWarmer(c)

	// Simulate an active run by holding the flag.
	require.True(t, w.warming.CompareAndSwap(false, true))
	defer w.warming.Store(false)

	err := w.Warm(context.Background(), []string{"a:1"}, nil)
	assert.ErrorIs(t, err, ErrWarmingInProgress)
	assert.True(t, w.IsWarming())
}

func TestWarmerAbortsOnCancellation(t *testing.T) {
	c := newTestCache(t)
	// A tiny rate forces the limiter to block so cancellation is observed.
	w := NewWarmer(c, WithWarmRate(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keys := []string{"a:1", "a:2", "a:3"}
	err := w.Warm(ctx, keys, nil)
	assert.Error(t, err)
}

func TestWarmSnapshotsSeedsAllTiers(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	w := NewWarmer(c)

	err := w.WarmSnapshots(ctx, map[string]*actor.Snapshot{
		"a:1": snap("a", 1),
		"b:1": snap("b", 1),
	})
	require.NoError(t, err)

	for _, key := range []string{"a:1", "b:1"} {
		_, ok := c.Get(ctx, key)
		assert.True(t, ok)
	}
	assert.Equal(t, int64(2), w.Stats().Successes)
}
