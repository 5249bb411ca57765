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
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/actorcore/actor"
)

// entry is one cached snapshot with its expiry and size estimate.
type entry struct {
	key       string
	snap      *actor.Snapshot
	expiresAt time.Time
	size      int64
}

// memoryLayer is an in-memory LRU+TTL store. It backs the L1 tier
// directly and each L2 shard.
//
// Thread Safety: Safe for concurrent use. One mutex guards the map and
// the LRU list; counters are atomic and readable without the lock.
type memoryLayer struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int
	defaultTTL time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	memory    atomic.Int64
	resp      responseTracker
}

func newMemoryLayer(maxEntries int, defaultTTL time.Duration) *memoryLayer {
	return &memoryLayer{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
}

// get returns the snapshot for key, refreshing its LRU position. An
// expired entry is removed and reported as a miss.
func (m *memoryLayer) get(key string) (*actor.Snapshot, bool) {
	start := time.Now()
	defer func() { m.resp.record(time.Since(start)) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	e := elem.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		m.removeElement(elem)
		m.evictions.Add(1)
		m.misses.Add(1)
		return nil, false
	}
	m.lru.MoveToFront(elem)
	m.hits.Add(1)
	return e.snap, true
}

// set stores the snapshot under key. A ttl <= 0 uses the layer default.
// Capacity overflow evicts from the LRU tail.
func (m *memoryLayer) set(key string, snap *actor.Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	size := estimateSnapshotSize(snap)

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		e := elem.Value.(*entry)
		m.memory.Add(size - e.size)
		e.snap = snap
		e.expiresAt = time.Now().Add(ttl)
		e.size = size
		m.lru.MoveToFront(elem)
		m.sets.Add(1)
		return
	}

	elem := m.lru.PushFront(&entry{
		key:       key,
		snap:      snap,
		expiresAt: time.Now().Add(ttl),
		size:      size,
	})
	m.entries[key] = elem
	m.memory.Add(size)
	m.sets.Add(1)

	for len(m.entries) > m.maxEntries {
		m.evictOldest()
	}
}

// delete removes key. Returns true if an entry was removed.
func (m *memoryLayer) delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return false
	}
	m.removeElement(elem)
	m.deletes.Add(1)
	return true
}

// clear drops every entry.
func (m *memoryLayer) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*list.Element)
	m.lru.Init()
	m.memory.Store(0)
}

// len returns the live entry count.
func (m *memoryLayer) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// stats returns a point-in-time counter view.
func (m *memoryLayer) stats() LayerStats {
	return LayerStats{
		Hits:            m.hits.Load(),
		Misses:          m.misses.Load(),
		Sets:            m.sets.Load(),
		Deletes:         m.deletes.Load(),
		Evictions:       m.evictions.Load(),
		EntryCount:      int64(m.len()),
		MaxEntries:      int64(m.maxEntries),
		MemoryUsage:     m.memory.Load(),
		AvgResponseTime: m.resp.avg(),
		MaxResponseTime: m.resp.max(),
	}
}

// evictOldest drops the LRU tail entry.
//
// Must be called with the lock held.
func (m *memoryLayer) evictOldest() {
	elem := m.lru.Back()
	if elem == nil {
		return
	}
	m.removeElement(elem)
	m.evictions.Add(1)
}

// removeElement unlinks an element from both the list and the map.
//
// Must be called with the lock held.
func (m *memoryLayer) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	m.lru.Remove(elem)
	delete(m.entries, e.key)
	m.memory.Add(-e.size)
}

// estimateSnapshotSize approximates a snapshot's resident bytes. The
// estimate only needs to be proportional; eviction accounting does not
// depend on exact heap sizes.
func estimateSnapshotSize(snap *actor.Snapshot) int64 {
	if snap == nil {
		return 0
	}
	const entryOverhead = 48
	size := int64(128 + len(snap.ActorID))
	size += int64(len(snap.Primary)+len(snap.Derived)) * entryOverhead
	size += int64(len(snap.CapsUsed)) * (entryOverhead + 16)
	for _, s := range snap.SubsystemsProcessed {
		size += int64(len(s)) + 16
	}
	size += int64(len(snap.Metadata)) * entryOverhead
	return size
}
