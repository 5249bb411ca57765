// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package actor

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCapsClamp(t *testing.T) {
	c := NewCaps(50, 150)

	if got := c.Clamp(200); got != 150 {
		t.Errorf("Clamp(200) = %v, want 150", got)
	}
	if got := c.Clamp(10); got != 50 {
		t.Errorf("Clamp(10) = %v, want 50", got)
	}
	if got := c.Clamp(100); got != 100 {
		t.Errorf("Clamp(100) = %v, want 100", got)
	}
}

func TestCapsClampIdempotent(t *testing.T) {
	c := NewCaps(0, 100)
	for _, v := range []float64{-50, 0, 42, 100, 1e9} {
		once := c.Clamp(v)
		if twice := c.Clamp(once); twice != once {
			t.Errorf("Clamp not idempotent for %v: %v then %v", v, once, twice)
		}
		if !c.Contains(once) {
			t.Errorf("Contains(Clamp(%v)) = false", v)
		}
	}
}

func TestCapsUnionIntersection(t *testing.T) {
	a := NewCaps(0, 100)
	b := NewCaps(50, 150)

	u := a.Union(b)
	if u.Min != 0 || u.Max != 150 {
		t.Errorf("Union = %+v, want {0 150}", u)
	}

	i := a.Intersection(b)
	if i.Min != 50 || i.Max != 100 {
		t.Errorf("Intersection = %+v, want {50 100}", i)
	}
}

func TestCapsDisjointIntersectionIsEmpty(t *testing.T) {
	a := NewCaps(0, 10)
	b := NewCaps(20, 30)

	i := a.Intersection(b)
	if !i.IsEmpty() {
		t.Errorf("disjoint intersection %+v should be empty", i)
	}
	if i.IsValid() {
		t.Error("inverted range reported valid")
	}
}

func TestCapsJSONUnboundedSides(t *testing.T) {
	c := Caps{Min: math.Inf(-1), Max: 100}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"min":null,"max":100}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Caps
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !math.IsInf(back.Min, -1) || back.Max != 100 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestCapsExpandShrink(t *testing.T) {
	c := NewCaps(10, 20)

	e := c.Expand(5)
	if e.Min != 5 || e.Max != 25 {
		t.Errorf("Expand(5) = %+v", e)
	}
	s := c.Shrink(2)
	if s.Min != 12 || s.Max != 18 {
		t.Errorf("Shrink(2) = %+v", s)
	}
	if c.GetRange() != 10 || c.GetCenter() != 15 {
		t.Errorf("range/center = %v/%v", c.GetRange(), c.GetCenter())
	}
}
