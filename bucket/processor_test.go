// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bucket

import (
	"math"
	"testing"

	"github.com/AleutianAI/actorcore/actor"
)

func contrib(bucket actor.Bucket, value float64) actor.Contribution {
	return actor.NewContribution("strength", bucket, value, "test")
}

func TestProcessIdentity(t *testing.T) {
	if got := Process(nil, 42, nil); got != 42 {
		t.Errorf("Process(nil, 42) = %v, want 42", got)
	}
	if got := Process([]actor.Contribution{}, -3.5, nil); got != -3.5 {
		t.Errorf("Process([], -3.5) = %v, want -3.5", got)
	}

	// Identity holds even when caps are supplied.
	caps := actor.NewCaps(50, 150)
	if got := Process(nil, 10, &caps); got != 10 {
		t.Errorf("Process(nil, 10, caps) = %v, want 10", got)
	}
}

func TestProcessFlatOnly(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketFlat, 10).WithPriority(1),
		contrib(actor.BucketFlat, 5).WithPriority(2),
	}
	if got := Process(contribs, 0, nil); got != 15 {
		t.Errorf("flat fold = %v, want 15", got)
	}

	// Order independence.
	reversed := []actor.Contribution{contribs[1], contribs[0]}
	if got := Process(reversed, 0, nil); got != 15 {
		t.Errorf("reversed flat fold = %v, want 15", got)
	}
}

func TestProcessMultOnly(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketMult, 2.0),
		contrib(actor.BucketMult, 1.5),
	}
	if got := Process(contribs, 10, nil); got != 30 {
		t.Errorf("mult fold = %v, want 30", got)
	}
}

func TestProcessMixedPipeline(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketPostAdd, 5),
		contrib(actor.BucketFlat, 10),
		contrib(actor.BucketMult, 2),
	}
	// ((0 + 10) * 2) + 5 = 25, regardless of input order.
	if got := Process(contribs, 0, nil); got != 25 {
		t.Errorf("mixed fold = %v, want 25", got)
	}

	shuffled := []actor.Contribution{contribs[2], contribs[0], contribs[1]}
	if got := Process(shuffled, 0, nil); got != 25 {
		t.Errorf("shuffled mixed fold = %v, want 25", got)
	}
}

func TestProcessOverrideTakesLastAfterSort(t *testing.T) {
	// Priorities sort descending, so 100 comes first and 1 comes last.
	// The fold takes the LAST element: the lowest priority wins.
	contribs := []actor.Contribution{
		contrib(actor.BucketOverride, 777).WithPriority(100),
		contrib(actor.BucketOverride, 42).WithPriority(1),
	}
	if got := Process(contribs, 0, nil); got != 42 {
		t.Errorf("override fold = %v, want 42", got)
	}

	// Deterministic: same multiset, any input order, same answer.
	reversed := []actor.Contribution{contribs[1], contribs[0]}
	if got := Process(reversed, 0, nil); got != 42 {
		t.Errorf("reversed override fold = %v, want 42", got)
	}
}

func TestProcessOverrideWithoutPriorityTakesLastInserted(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketOverride, 1),
		contrib(actor.BucketOverride, 2),
		contrib(actor.BucketOverride, 3),
	}
	if got := Process(contribs, 0, nil); got != 3 {
		t.Errorf("override fold = %v, want 3 (last inserted)", got)
	}
}

func TestProcessNilPrioritySortsLast(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketOverride, 5), // no priority, sorts last
		contrib(actor.BucketOverride, 9).WithPriority(1),
	}
	if got := Process(contribs, 0, nil); got != 5 {
		t.Errorf("override fold = %v, want 5 (nil priority last)", got)
	}
}

func TestProcessClampsWithCaps(t *testing.T) {
	caps := actor.NewCaps(50, 150)

	contribs := []actor.Contribution{contrib(actor.BucketFlat, 200)}
	if got := Process(contribs, 0, &caps); got != 150 {
		t.Errorf("over-cap fold = %v, want 150", got)
	}

	contribs = []actor.Contribution{contrib(actor.BucketFlat, 10)}
	if got := Process(contribs, 0, &caps); got != 50 {
		t.Errorf("under-cap fold = %v, want 50", got)
	}
}

func TestProcessExtendedBuckets(t *testing.T) {
	t.Run("exponential", func(t *testing.T) {
		contribs := []actor.Contribution{
			contrib(actor.BucketFlat, 3),
			contrib(actor.BucketExponential, 2),
		}
		if got := Process(contribs, 0, nil); got != 9 {
			t.Errorf("exponential fold = %v, want 9", got)
		}
	})

	t.Run("logarithmic", func(t *testing.T) {
		contribs := []actor.Contribution{
			contrib(actor.BucketFlat, 10),
			contrib(actor.BucketLogarithmic, math.E - 1),
		}
		got := Process(contribs, 0, nil)
		if math.Abs(got-10) > 1e-9 {
			t.Errorf("logarithmic fold = %v, want 10", got)
		}
	})

	t.Run("conditional degrades to flat", func(t *testing.T) {
		contribs := []actor.Contribution{
			contrib(actor.BucketConditional, 7),
		}
		if got := Process(contribs, 1, nil); got != 8 {
			t.Errorf("conditional fold = %v, want 8", got)
		}
	})
}

func TestProcessIgnoresUnknownBucket(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.Bucket(99), 1000),
		contrib(actor.BucketFlat, 10),
		contrib(actor.BucketMult, 2),
	}
	// The unknown-bucket entry drops out; the rest fold normally.
	if got := Process(contribs, 0, nil); got != 20 {
		t.Errorf("fold with unknown bucket = %v, want 20", got)
	}

	// All-unknown input folds nothing.
	contribs = []actor.Contribution{contrib(actor.Bucket(99), 1000)}
	if got := Process(contribs, 7, nil); got != 7 {
		t.Errorf("all-unknown fold = %v, want 7", got)
	}
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	contribs := []actor.Contribution{
		contrib(actor.BucketOverride, 1).WithPriority(1),
		contrib(actor.BucketFlat, 10),
	}
	Process(contribs, 0, nil)

	if contribs[0].Bucket != actor.BucketOverride || contribs[1].Bucket != actor.BucketFlat {
		t.Error("input slice reordered by Process")
	}
}
