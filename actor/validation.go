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

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateActor checks the actor's struct tags and cross-field rules.
//
// Returns an error wrapping ErrInvalidActor on any failure; resolve calls
// abort immediately on such errors rather than producing a partial result.
func ValidateActor(a *Actor) error {
	if a == nil {
		return fmt.Errorf("%w: nil actor", ErrInvalidActor)
	}
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidActor, err)
	}
	if a.LifeSpan > 0 && a.Age > a.LifeSpan {
		return fmt.Errorf("%w: age %d exceeds lifespan %d", ErrInvalidActor, a.Age, a.LifeSpan)
	}
	return nil
}

// ValidateSnapshot checks the snapshot's struct tags.
func ValidateSnapshot(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s.Validate()
}
