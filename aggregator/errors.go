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

import "errors"

var (
	// ErrSubsystemFailed indicates one subsystem's Contribute failed.
	// Surfaced only under the fail-fast policy; the default policy
	// isolates the failure instead.
	ErrSubsystemFailed = errors.New("subsystem contribution failed")

	// ErrAggregationFailed indicates a merge-level failure.
	ErrAggregationFailed = errors.New("aggregation failed")

	// ErrNilRegistry indicates New was called without a plugin registry.
	ErrNilRegistry = errors.New("nil plugin registry")

	// ErrNilCapsProvider indicates New was called without a caps provider.
	ErrNilCapsProvider = errors.New("nil caps provider")
)
