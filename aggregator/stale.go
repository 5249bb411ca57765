// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregator

import (
	"container/list"
	"sync"

	"github.com/AleutianAI/actorcore/actor"
)

// defaultStaleCapacity bounds the number of actors whose last good
// snapshot is kept for stale serving.
const defaultStaleCapacity = 1024

// staleStore keeps the most recent snapshot per actor, evicting the
// least recently touched actor once the capacity is reached. Without
// the bound a long-lived process would retain one snapshot for every
// actor it ever resolved.
//
// Thread Safety: Safe for concurrent use.
type staleStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List // front = most recently used
}

type staleEntry struct {
	actorID string
	snap    *actor.Snapshot
}

func newStaleStore(capacity int) *staleStore {
	if capacity < 1 {
		capacity = defaultStaleCapacity
	}
	return &staleStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// put records the actor's latest snapshot, replacing any previous one.
func (s *staleStore) put(actorID string, snap *actor.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[actorID]; ok {
		el.Value.(*staleEntry).snap = snap
		s.lru.MoveToFront(el)
		return
	}
	if s.lru.Len() >= s.capacity {
		oldest := s.lru.Back()
		if oldest != nil {
			s.lru.Remove(oldest)
			delete(s.entries, oldest.Value.(*staleEntry).actorID)
		}
	}
	s.entries[actorID] = s.lru.PushFront(&staleEntry{actorID: actorID, snap: snap})
}

// get returns the actor's last good snapshot, or nil.
func (s *staleStore) get(actorID string) *actor.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[actorID]
	if !ok {
		return nil
	}
	s.lru.MoveToFront(el)
	return el.Value.(*staleEntry).snap
}

// len reports the number of retained snapshots.
func (s *staleStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
