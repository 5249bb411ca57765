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

import (
	"hash/fnv"
	"time"

	"github.com/AleutianAI/actorcore/actor"
)

// shardedLayer spreads entries across independent memoryLayer shards so
// concurrent reads and writes of different keys never contend on one
// lock. Backs the L2 tier.
//
// Thread Safety: Safe for concurrent use.
type shardedLayer struct {
	shards []*memoryLayer
	mask   uint32
}

// newShardedLayer builds a layer of shardCount shards sharing maxEntries
// of total capacity. shardCount must be a power of two.
func newShardedLayer(maxEntries, shardCount int, defaultTTL time.Duration) *shardedLayer {
	perShard := maxEntries / shardCount
	if perShard < 1 {
		perShard = 1
	}
	shards := make([]*memoryLayer, shardCount)
	for i := range shards {
		shards[i] = newMemoryLayer(perShard, defaultTTL)
	}
	return &shardedLayer{
		shards: shards,
		mask:   uint32(shardCount - 1),
	}
}

func (s *shardedLayer) shard(key string) *memoryLayer {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()&s.mask]
}

func (s *shardedLayer) get(key string) (*actor.Snapshot, bool) {
	return s.shard(key).get(key)
}

func (s *shardedLayer) set(key string, snap *actor.Snapshot, ttl time.Duration) {
	s.shard(key).set(key, snap, ttl)
}

func (s *shardedLayer) delete(key string) bool {
	return s.shard(key).delete(key)
}

func (s *shardedLayer) clear() {
	for _, shard := range s.shards {
		shard.clear()
	}
}

func (s *shardedLayer) len() int {
	n := 0
	for _, shard := range s.shards {
		n += shard.len()
	}
	return n
}

// stats sums the shard counters. Response times take the worst shard max
// and the mean of shard averages.
func (s *shardedLayer) stats() LayerStats {
	var out LayerStats
	var avgSum time.Duration
	for _, shard := range s.shards {
		st := shard.stats()
		out.Hits += st.Hits
		out.Misses += st.Misses
		out.Sets += st.Sets
		out.Deletes += st.Deletes
		out.Evictions += st.Evictions
		out.EntryCount += st.EntryCount
		out.MaxEntries += st.MaxEntries
		out.MemoryUsage += st.MemoryUsage
		avgSum += st.AvgResponseTime
		if st.MaxResponseTime > out.MaxResponseTime {
			out.MaxResponseTime = st.MaxResponseTime
		}
	}
	out.AvgResponseTime = avgSum / time.Duration(len(s.shards))
	return out
}
