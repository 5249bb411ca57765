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
	"context"
	"time"

	"github.com/google/uuid"
)

// Subsystem is the contract implemented by external stat producers
// (equipment, buffs, cultivation systems, ...). The core only consumes
// this interface; it never inspects implementations.
//
// Contribute may be called concurrently for different actors. The actor
// argument is read-only for the duration of the call.
type Subsystem interface {
	// SystemID returns the unique identifier of this subsystem.
	SystemID() string

	// Priority orders subsystems; lower values contribute earlier.
	Priority() int64

	// Contribute produces this subsystem's output for one actor.
	Contribute(ctx context.Context, a *Actor) (*SubsystemOutput, error)
}

// SubsystemRef is a lightweight descriptor of a subsystem attached to an
// actor. It records the attachment, not the implementation.
type SubsystemRef struct {
	SystemID string         `json:"system_id"`
	Priority int64          `json:"priority"`
	Enabled  bool           `json:"enabled"`
	Config   map[string]any `json:"config,omitempty"`
}

// Actor is the character entity whose stats are computed.
//
// The caller owns the Actor. During one resolve pass the aggregator treats
// it as read-only; mutating it concurrently with an in-flight resolve
// forfeits snapshot consistency.
type Actor struct {
	// ID uniquely identifies the actor.
	ID string `json:"id" validate:"required"`

	// Name is the display name.
	Name string `json:"name" validate:"required"`

	// Race is the actor's race or species.
	Race string `json:"race"`

	// LifeSpan is the total life span in years.
	LifeSpan int64 `json:"lifespan" validate:"gte=0"`

	// Age is the current age in years.
	Age int64 `json:"age" validate:"gte=0"`

	// Version increments on every state change; it keys cache entries.
	Version int64 `json:"version" validate:"gte=0"`

	// Subsystems lists the attached subsystem descriptors.
	Subsystems []SubsystemRef `json:"subsystems,omitempty"`

	// Data is an open-ended attribute map. Insertion order carries no
	// meaning.
	Data map[string]any `json:"data,omitempty"`

	// CreatedAt and UpdatedAt track lifecycle timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewActor returns an actor with a fresh UUID and version 1.
func NewActor(name, race string, lifeSpan int64) *Actor {
	now := time.Now()
	return &Actor{
		ID:        uuid.NewString(),
		Name:      name,
		Race:      race,
		LifeSpan:  lifeSpan,
		Version:   1,
		Data:      make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsValid reports whether the actor passes structural validation.
func (a *Actor) IsValid() bool {
	return ValidateActor(a) == nil
}

// Touch bumps the version and the update timestamp. Call after any state
// change so cached snapshots for the old version go stale.
func (a *Actor) Touch() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// UpdateVersion sets the version explicitly and refreshes UpdatedAt.
func (a *Actor) UpdateVersion(v int64) {
	a.Version = v
	a.UpdatedAt = time.Now()
}

// AddSubsystem attaches a subsystem descriptor and bumps the version.
func (a *Actor) AddSubsystem(ref SubsystemRef) {
	a.Subsystems = append(a.Subsystems, ref)
	a.Touch()
}

// RemoveSubsystem detaches the descriptor with the given system id.
// Returns true if a descriptor was removed.
func (a *Actor) RemoveSubsystem(systemID string) bool {
	for i := range a.Subsystems {
		if a.Subsystems[i].SystemID == systemID {
			a.Subsystems = append(a.Subsystems[:i], a.Subsystems[i+1:]...)
			a.Touch()
			return true
		}
	}
	return false
}

// HasSubsystem reports whether a descriptor with the given id is attached.
func (a *Actor) HasSubsystem(systemID string) bool {
	for i := range a.Subsystems {
		if a.Subsystems[i].SystemID == systemID {
			return true
		}
	}
	return false
}

// Buffs returns the actor's active buff names from the attribute map.
func (a *Actor) Buffs() []string {
	raw, ok := a.Data["buffs"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasBuff reports whether the named buff is active.
func (a *Actor) HasBuff(name string) bool {
	for _, b := range a.Buffs() {
		if b == name {
			return true
		}
	}
	return false
}

// IsInCombat reports the combat flag from the attribute map.
func (a *Actor) IsInCombat() bool {
	v, _ := a.Data["in_combat"].(bool)
	return v
}

// IsOnline reports the online flag from the attribute map.
func (a *Actor) IsOnline() bool {
	v, _ := a.Data["online"].(bool)
	return v
}

// GuildID returns the guild id from the attribute map, or "".
func (a *Actor) GuildID() string {
	v, _ := a.Data["guild_id"].(string)
	return v
}

// SetGuildID stores the guild id and bumps the version.
func (a *Actor) SetGuildID(id string) {
	if a.Data == nil {
		a.Data = make(map[string]any)
	}
	a.Data["guild_id"] = id
	a.Touch()
}

// CacheKey returns the snapshot cache key for the actor's current version.
func (a *Actor) CacheKey() string {
	return SnapshotKey(a.ID, a.Version)
}
