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

import "errors"

var (
	// ErrInvalidActor indicates the actor failed structural validation.
	ErrInvalidActor = errors.New("invalid actor")

	// ErrInvalidContribution indicates a contribution carries a bad
	// dimension, bucket, or non-finite value.
	ErrInvalidContribution = errors.New("invalid contribution")

	// ErrInvalidCap indicates a cap contribution carries a bad dimension,
	// mode, kind, or non-finite value.
	ErrInvalidCap = errors.New("invalid cap contribution")

	// ErrInvalidSnapshot indicates a snapshot failed structural validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrInvertedCaps indicates a caps range with min greater than max.
	ErrInvertedCaps = errors.New("caps range inverted")
)
