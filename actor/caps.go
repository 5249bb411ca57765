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
)

// Caps is an inclusive [Min, Max] bound for one dimension.
//
// The invariant Min <= Max is expected but not enforced by construction:
// Intersection of disjoint ranges produces an inverted result, and callers
// that intersect must check IsEmpty before clamping.
type Caps struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewCaps returns a Caps with the given bounds.
func NewCaps(min, max float64) Caps {
	return Caps{Min: min, Max: max}
}

// UnboundedCaps returns a Caps that admits every finite value.
func UnboundedCaps() Caps {
	return Caps{Min: math.Inf(-1), Max: math.Inf(1)}
}

// IsValid reports whether the range is well formed (Min <= Max, both
// non-NaN).
func (c Caps) IsValid() bool {
	return !math.IsNaN(c.Min) && !math.IsNaN(c.Max) && c.Min <= c.Max
}

// IsEmpty reports whether the range admits no value (inverted bounds).
func (c Caps) IsEmpty() bool {
	return c.Min > c.Max
}

// Clamp constrains v into [Min, Max].
func (c Caps) Clamp(v float64) float64 {
	return math.Max(c.Min, math.Min(v, c.Max))
}

// Contains reports whether v lies inside the range.
func (c Caps) Contains(v float64) bool {
	return v >= c.Min && v <= c.Max
}

// Union loosens: the smallest min and the largest max of the two ranges.
func (c Caps) Union(other Caps) Caps {
	return Caps{
		Min: math.Min(c.Min, other.Min),
		Max: math.Max(c.Max, other.Max),
	}
}

// Intersection tightens: the largest min and the smallest max. Disjoint
// inputs produce an inverted (empty) range; see IsEmpty.
func (c Caps) Intersection(other Caps) Caps {
	return Caps{
		Min: math.Max(c.Min, other.Min),
		Max: math.Min(c.Max, other.Max),
	}
}

// capsJSON is the wire form of Caps. JSON has no encoding for
// infinities, so an unbounded side serializes as null.
type capsJSON struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// MarshalJSON encodes unbounded sides as null.
func (c Caps) MarshalJSON() ([]byte, error) {
	var out capsJSON
	if !math.IsInf(c.Min, -1) {
		v := c.Min
		out.Min = &v
	}
	if !math.IsInf(c.Max, 1) {
		v := c.Max
		out.Max = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null sides back to ±Inf.
func (c *Caps) UnmarshalJSON(data []byte) error {
	var in capsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Min = math.Inf(-1)
	c.Max = math.Inf(1)
	if in.Min != nil {
		c.Min = *in.Min
	}
	if in.Max != nil {
		c.Max = *in.Max
	}
	return nil
}

// GetRange returns the width of the range.
func (c Caps) GetRange() float64 {
	return c.Max - c.Min
}

// GetCenter returns the midpoint of the range.
func (c Caps) GetCenter() float64 {
	return (c.Min + c.Max) / 2
}

// Expand widens both bounds outward by amount. A negative amount shrinks.
func (c Caps) Expand(amount float64) Caps {
	return Caps{Min: c.Min - amount, Max: c.Max + amount}
}

// Shrink narrows both bounds inward by amount.
func (c Caps) Shrink(amount float64) Caps {
	return c.Expand(-amount)
}
