// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the tiered snapshot store:
//
//	L1 — small in-memory LRU with short TTLs, one lock, lowest latency.
//	L2 — larger sharded in-memory LRU with longer TTLs.
//	L3 — BadgerDB-backed durable tier with the longest TTLs.
//
// A read walks L1 → L2 → L3 and promotes what it finds upward, so a key
// located only in L3 is resident in L1 immediately after the read. Writes
// go through L1 synchronously and propagate to L2 and L3 in the same
// call; a durable-tier outage degrades to a logged warning and a cache
// miss, never an aggregation failure.
//
// Each tier evicts independently on TTL expiry and LRU capacity overflow.
// Per-tier counters are atomic; no lock is held across L3 I/O.
package cache
