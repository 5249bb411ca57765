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
	"fmt"
	"math"
)

// Contribution is one input to a dimension's value from one subsystem.
//
// Contributions are immutable once produced. Priority is optional; a nil
// priority sorts after every explicit priority within its bucket.
type Contribution struct {
	// Dimension names the stat this contribution targets ("strength").
	Dimension string `json:"dimension"`

	// Bucket selects the fold semantics (Flat, Mult, PostAdd, Override...).
	Bucket Bucket `json:"bucket"`

	// Value is the operand applied under the bucket's semantics.
	Value float64 `json:"value"`

	// System identifies the producing subsystem.
	System string `json:"system"`

	// Priority orders contributions within a bucket, descending. Nil means
	// no explicit priority.
	Priority *int64 `json:"priority,omitempty"`

	// Tags carries free-form annotations; never semantically meaningful
	// to the merge.
	Tags map[string]string `json:"tags,omitempty"`
}

// NewContribution returns a contribution without an explicit priority.
func NewContribution(dimension string, bucket Bucket, value float64, system string) Contribution {
	return Contribution{
		Dimension: dimension,
		Bucket:    bucket,
		Value:     value,
		System:    system,
	}
}

// WithPriority returns a copy of c carrying the given priority.
func (c Contribution) WithPriority(p int64) Contribution {
	c.Priority = &p
	return c
}

// Validate checks the contribution is structurally sound.
func (c Contribution) Validate() error {
	if c.Dimension == "" {
		return fmt.Errorf("%w: empty dimension", ErrInvalidContribution)
	}
	if !c.Bucket.IsValid() {
		return fmt.Errorf("%w: unknown bucket %d", ErrInvalidContribution, int(c.Bucket))
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("%w: non-finite value for %s", ErrInvalidContribution, c.Dimension)
	}
	return nil
}

// CapContribution is one input to a dimension's effective bound.
type CapContribution struct {
	// System identifies the producing subsystem.
	System string `json:"system"`

	// Dimension names the stat this cap constrains.
	Dimension string `json:"dimension"`

	// Mode selects the fold semantics (Baseline, Additive, HardMax...).
	Mode CapMode `json:"mode"`

	// Kind selects the bound: CapKindMin or CapKindMax.
	Kind string `json:"kind"`

	// Value is the operand applied under the mode's semantics.
	Value float64 `json:"value"`

	// Priority orders cap contributions within a layer, descending.
	Priority *int64 `json:"priority,omitempty"`

	// Scope names the cap layer this contribution belongs to. Empty scope
	// resolves to the registry's last (highest priority) layer.
	Scope string `json:"scope,omitempty"`

	// Tags carries free-form annotations.
	Tags map[string]string `json:"tags,omitempty"`
}

// NewCapContribution returns a cap contribution with the given fields.
func NewCapContribution(system, dimension string, mode CapMode, kind string, value float64) CapContribution {
	return CapContribution{
		System:    system,
		Dimension: dimension,
		Mode:      mode,
		Kind:      kind,
		Value:     value,
	}
}

// Validate checks the cap contribution is structurally sound.
func (c CapContribution) Validate() error {
	if c.Dimension == "" {
		return fmt.Errorf("%w: empty dimension", ErrInvalidCap)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidCap, int(c.Mode))
	}
	if c.Kind != CapKindMin && c.Kind != CapKindMax {
		return fmt.Errorf("%w: kind must be %q or %q, got %q", ErrInvalidCap, CapKindMin, CapKindMax, c.Kind)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("%w: non-finite value for %s", ErrInvalidCap, c.Dimension)
	}
	return nil
}

// ModifierPack is a per-dimension post-fold adjustment: additive percents
// of the folded base, then multipliers, then flat post-additions.
type ModifierPack struct {
	AdditivePercent []float64 `json:"additive_percent,omitempty"`
	Multipliers     []float64 `json:"multipliers,omitempty"`
	PostAdd         []float64 `json:"post_add,omitempty"`
}

// Apply folds the pack onto base:
//
//	(base + base*Σadd%/100) * Πmult + Σpost
func (m ModifierPack) Apply(base float64) float64 {
	v := base
	for _, pct := range m.AdditivePercent {
		v += base * pct / 100
	}
	for _, mult := range m.Multipliers {
		v *= mult
	}
	for _, post := range m.PostAdd {
		v += post
	}
	return v
}

// IsZero reports whether the pack carries no adjustments.
func (m ModifierPack) IsZero() bool {
	return len(m.AdditivePercent) == 0 && len(m.Multipliers) == 0 && len(m.PostAdd) == 0
}

// SubsystemMeta identifies the subsystem that produced an output.
type SubsystemMeta struct {
	System string `json:"system"`
}

// SubsystemOutput is everything one subsystem contributes in one pass.
//
// Produced fresh on every Contribute call and consumed within that pass;
// the aggregator never retains it.
type SubsystemOutput struct {
	// Primary carries raw seed values for primary dimensions.
	Primary map[string]float64 `json:"primary,omitempty"`

	// Derived carries raw seed values for derived dimensions.
	Derived map[string]float64 `json:"derived,omitempty"`

	// Contributions feed the bucket pipeline.
	Contributions []Contribution `json:"contributions,omitempty"`

	// Caps feed the cap layer resolution.
	Caps []CapContribution `json:"caps,omitempty"`

	// Context carries per-dimension modifier packs applied after folding.
	Context map[string]ModifierPack `json:"context,omitempty"`

	// Meta identifies the producer.
	Meta SubsystemMeta `json:"meta"`
}

// NewSubsystemOutput returns an empty output attributed to system.
func NewSubsystemOutput(system string) *SubsystemOutput {
	return &SubsystemOutput{
		Primary: make(map[string]float64),
		Derived: make(map[string]float64),
		Meta:    SubsystemMeta{System: system},
	}
}

// AddContribution appends a contribution to the output.
func (o *SubsystemOutput) AddContribution(c Contribution) {
	o.Contributions = append(o.Contributions, c)
}

// AddCap appends a cap contribution to the output.
func (o *SubsystemOutput) AddCap(c CapContribution) {
	o.Caps = append(o.Caps, c)
}

// IsEmpty reports whether the output contributes nothing.
func (o *SubsystemOutput) IsEmpty() bool {
	return o == nil ||
		(len(o.Primary) == 0 && len(o.Derived) == 0 &&
			len(o.Contributions) == 0 && len(o.Caps) == 0 && len(o.Context) == 0)
}

// Validate checks every carried contribution and cap.
func (o *SubsystemOutput) Validate() error {
	for i := range o.Contributions {
		if err := o.Contributions[i].Validate(); err != nil {
			return fmt.Errorf("contribution %d from %s: %w", i, o.Meta.System, err)
		}
	}
	for i := range o.Caps {
		if err := o.Caps[i].Validate(); err != nil {
			return fmt.Errorf("cap %d from %s: %w", i, o.Meta.System, err)
		}
	}
	return nil
}
