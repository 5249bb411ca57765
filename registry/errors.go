// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import "errors"

var (
	// ErrDuplicateSystem indicates a subsystem id is already registered.
	ErrDuplicateSystem = errors.New("subsystem already registered")

	// ErrSystemNotFound indicates no subsystem with the given id exists.
	ErrSystemNotFound = errors.New("subsystem not registered")

	// ErrNilSubsystem indicates a nil subsystem was passed to Register.
	ErrNilSubsystem = errors.New("nil subsystem")

	// ErrEmptySystemID indicates a subsystem reported an empty id.
	ErrEmptySystemID = errors.New("empty subsystem id")

	// ErrRegistryImmutable indicates a mutation was attempted on a
	// registry that was loaded from external configuration and sealed.
	ErrRegistryImmutable = errors.New("registry is immutable: loaded from configuration")

	// ErrInvalidConfig indicates a loaded registry is structurally invalid.
	ErrInvalidConfig = errors.New("invalid registry configuration")

	// ErrUnknownLayer indicates a cap layer name that is not configured.
	ErrUnknownLayer = errors.New("unknown cap layer")
)
