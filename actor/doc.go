// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package actor defines the value types that flow through the stat
// aggregation pipeline: the Actor being resolved, the Subsystem contract
// implemented by external stat producers, and the immutable carriers
// (Contribution, CapContribution, SubsystemOutput, Caps, Snapshot) that
// move data between them.
//
// # Ownership Model
//
// The Actor is owned by the caller and is treated as read-only for the
// duration of one aggregation pass. Contribution, CapContribution, and
// SubsystemOutput are created by subsystems and consumed within a single
// pass; they are never retained. Snapshot is created by the aggregator and
// lives independently in the cache until evicted — eviction never affects
// snapshots already handed to callers.
//
// # Thread Safety
//
// All carrier types are plain values with no internal synchronization.
// Safety comes from the ownership model above: nothing here is mutated
// after publication.
package actor
