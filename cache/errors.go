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

import "errors"

var (
	// ErrEmptyKey indicates an empty cache key.
	ErrEmptyKey = errors.New("empty cache key")

	// ErrNilSnapshot indicates a nil snapshot was passed to Set.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrInvalidConfig indicates the cache configuration failed validation.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrTierUnavailable indicates a durable tier I/O failure. Reads
	// degrade to a miss on this error; it surfaces only in diagnostics.
	ErrTierUnavailable = errors.New("cache tier unavailable")

	// ErrClosed indicates the cache was used after Close.
	ErrClosed = errors.New("cache is closed")

	// ErrWarmingInProgress indicates a warming run is already active.
	ErrWarmingInProgress = errors.New("cache warming already in progress")
)
