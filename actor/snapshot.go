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
	"maps"
	"strconv"
	"time"
)

// Snapshot is the immutable result of one aggregation pass.
//
// Snapshots are freely copyable and structurally serializable; once built
// they are never mutated. A cached snapshot outlives the pass that built
// it and is evicted independently of any copies already returned.
type Snapshot struct {
	// ActorID identifies the actor this snapshot belongs to.
	ActorID string `json:"actor_id" validate:"required"`

	// Version is the actor version the snapshot was computed at.
	Version int64 `json:"version" validate:"gte=0"`

	// Primary holds the final values of primary dimensions.
	Primary map[string]float64 `json:"primary"`

	// Derived holds the final values of derived dimensions.
	Derived map[string]float64 `json:"derived"`

	// CapsUsed records the effective bound applied per dimension.
	CapsUsed map[string]Caps `json:"caps_used,omitempty"`

	// SubsystemsProcessed lists the subsystems that contributed, in the
	// order they were merged.
	SubsystemsProcessed []string `json:"subsystems_processed,omitempty"`

	// ProcessingTime is the wall time the pass took.
	ProcessingTime time.Duration `json:"processing_time"`

	// CreatedAt is the build timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Metadata carries free-form pass annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSnapshot returns an empty snapshot for the given actor and version.
func NewSnapshot(actorID string, version int64) *Snapshot {
	return &Snapshot{
		ActorID:   actorID,
		Version:   version,
		Primary:   make(map[string]float64),
		Derived:   make(map[string]float64),
		CapsUsed:  make(map[string]Caps),
		CreatedAt: time.Now(),
	}
}

// Get returns the value of a dimension, primary first, then derived.
func (s *Snapshot) Get(dimension string) (float64, bool) {
	if v, ok := s.Primary[dimension]; ok {
		return v, true
	}
	v, ok := s.Derived[dimension]
	return v, ok
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Primary = maps.Clone(s.Primary)
	out.Derived = maps.Clone(s.Derived)
	out.CapsUsed = maps.Clone(s.CapsUsed)
	out.SubsystemsProcessed = append([]string(nil), s.SubsystemsProcessed...)
	out.Metadata = maps.Clone(s.Metadata)
	return &out
}

// Validate checks the snapshot is structurally sound.
func (s *Snapshot) Validate() error {
	if s.ActorID == "" {
		return fmt.Errorf("%w: empty actor id", ErrInvalidSnapshot)
	}
	if s.Version < 0 {
		return fmt.Errorf("%w: negative version %d", ErrInvalidSnapshot, s.Version)
	}
	return nil
}

// SnapshotKey derives the cache key for an actor id and version.
func SnapshotKey(actorID string, version int64) string {
	return actorID + ":" + strconv.FormatInt(version, 10)
}
