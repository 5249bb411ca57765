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

// Bucket classifies how a Contribution folds into a dimension's value.
//
// Buckets are processed in ascending rank order: Flat, Mult, PostAdd,
// Override, then the extended buckets (Exponential, Logarithmic,
// Conditional). Within one bucket, contributions are ordered by priority
// descending; ties keep their input order.
type Bucket int

const (
	// BucketFlat adds its value to the running total before multipliers.
	BucketFlat Bucket = iota
	// BucketMult multiplies the running total.
	BucketMult
	// BucketPostAdd adds its value after multipliers have applied.
	BucketPostAdd
	// BucketOverride replaces the running total outright.
	BucketOverride
	// BucketExponential raises the running total to the power of its value.
	BucketExponential
	// BucketLogarithmic multiplies the running total by ln(value+1).
	BucketLogarithmic
	// BucketConditional contributes only when its guard condition holds;
	// without a condition engine attached it degrades to a flat add.
	BucketConditional
)

// Rank returns the processing rank of the bucket (lower folds earlier).
func (b Bucket) Rank() int {
	switch b {
	case BucketFlat:
		return 1
	case BucketMult:
		return 2
	case BucketPostAdd:
		return 3
	case BucketOverride:
		return 4
	case BucketExponential:
		return 5
	case BucketLogarithmic:
		return 6
	case BucketConditional:
		return 7
	default:
		return 0
	}
}

// IsValid reports whether b is one of the defined buckets.
func (b Bucket) IsValid() bool {
	return b >= BucketFlat && b <= BucketConditional
}

// String returns the display name of the bucket.
func (b Bucket) String() string {
	switch b {
	case BucketFlat:
		return "Flat"
	case BucketMult:
		return "Mult"
	case BucketPostAdd:
		return "PostAdd"
	case BucketOverride:
		return "Override"
	case BucketExponential:
		return "Exponential"
	case BucketLogarithmic:
		return "Logarithmic"
	case BucketConditional:
		return "Conditional"
	default:
		return "Unknown"
	}
}

// CapMode classifies how a CapContribution folds into a layer's bounds.
type CapMode int

const (
	// CapModeBaseline establishes the initial bound for a layer.
	CapModeBaseline CapMode = iota
	// CapModeAdditive widens the bound by adding to it.
	CapModeAdditive
	// CapModeHardMax is an absolute ceiling that later folds cannot loosen.
	CapModeHardMax
	// CapModeHardMin is an absolute floor that later folds cannot loosen.
	CapModeHardMin
	// CapModeOverride replaces the bound outright.
	CapModeOverride
	// CapModeSoftMax suggests a ceiling that hard caps still win over.
	CapModeSoftMax
)

// IsValid reports whether m is one of the defined cap modes.
func (m CapMode) IsValid() bool {
	return m >= CapModeBaseline && m <= CapModeSoftMax
}

// String returns the display name of the cap mode.
func (m CapMode) String() string {
	switch m {
	case CapModeBaseline:
		return "Baseline"
	case CapModeAdditive:
		return "Additive"
	case CapModeHardMax:
		return "HardMax"
	case CapModeHardMin:
		return "HardMin"
	case CapModeOverride:
		return "Override"
	case CapModeSoftMax:
		return "SoftMax"
	default:
		return "Unknown"
	}
}

// CapKindMin and CapKindMax select which bound a CapContribution targets.
const (
	CapKindMin = "min"
	CapKindMax = "max"
)

// Operator defines how a combiner rule merges contribution values when a
// dimension opts out of the plain bucket pipeline.
type Operator int

const (
	// OperatorSum adds all values.
	OperatorSum Operator = iota
	// OperatorMax takes the largest value.
	OperatorMax
	// OperatorMin takes the smallest value.
	OperatorMin
	// OperatorMultiply multiplies all values.
	OperatorMultiply
	// OperatorAverage takes the arithmetic mean.
	OperatorAverage
	// OperatorIntersect takes the smallest value (alias of Min, kept for
	// rule configs that phrase it as an intersection).
	OperatorIntersect
)

// String returns the display name of the operator.
func (o Operator) String() string {
	switch o {
	case OperatorSum:
		return "Sum"
	case OperatorMax:
		return "Max"
	case OperatorMin:
		return "Min"
	case OperatorMultiply:
		return "Multiply"
	case OperatorAverage:
		return "Average"
	case OperatorIntersect:
		return "Intersect"
	default:
		return "Unknown"
	}
}

// AcrossLayerPolicy defines how per-layer resolved caps for one dimension
// combine into a single effective bound.
type AcrossLayerPolicy int

const (
	// PolicyIntersect keeps the most restrictive range (default).
	PolicyIntersect AcrossLayerPolicy = iota
	// PolicyUnion keeps the least restrictive range.
	PolicyUnion
	// PolicyPrioritizedOverride lets the highest-priority layer win outright.
	PolicyPrioritizedOverride
)

// String returns the display name of the policy.
func (p AcrossLayerPolicy) String() string {
	switch p {
	case PolicyIntersect:
		return "Intersect"
	case PolicyUnion:
		return "Union"
	case PolicyPrioritizedOverride:
		return "PrioritizedOverride"
	default:
		return "Unknown"
	}
}
