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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/actorcore/actor"
)

// badgerLayer is the durable L3 tier backed by BadgerDB. Snapshots are
// stored as JSON values with Badger-native TTLs; expiry and space reclaim
// are Badger's, so the layer carries no LRU of its own.
//
// Thread Safety: Safe for concurrent use; Badger transactions provide
// isolation. No layer lock is held across I/O.
type badgerLayer struct {
	db         *badger.DB
	defaultTTL time.Duration
	logger     *slog.Logger

	gcStop chan struct{}
	gcDone chan struct{}

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	diskOps atomic.Int64
	fileOps atomic.Int64
	resp    responseTracker
}

// badgerSlogAdapter routes Badger's internal logging onto slog at a
// reduced level; Badger is chatty at INFO.
type badgerSlogAdapter struct {
	logger *slog.Logger
}

func (l badgerSlogAdapter) Errorf(format string, args ...any) {
	l.logger.Error("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerSlogAdapter) Warningf(format string, args ...any) {
	l.logger.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerSlogAdapter) Infof(format string, args ...any) {
	l.logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerSlogAdapter) Debugf(format string, args ...any) {
	l.logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// newBadgerLayer opens the durable tier and starts the GC goroutine when
// an interval is configured.
func newBadgerLayer(cfg Config, logger *slog.Logger) (*badgerLayer, error) {
	var opts badger.Options
	if cfg.L3InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.L3Path)
	}
	opts = opts.
		WithSyncWrites(cfg.L3SyncWrites).
		WithLogger(badgerSlogAdapter{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.L3Path, err)
	}

	l := &badgerLayer{
		db:         db,
		defaultTTL: cfg.L3TTL,
		logger:     logger,
	}
	if cfg.L3GCInterval > 0 && !cfg.L3InMemory {
		l.gcStop = make(chan struct{})
		l.gcDone = make(chan struct{})
		go l.runGC(cfg.L3GCInterval, cfg.L3GCDiscardRatio)
	}
	return l, nil
}

// get reads a snapshot. A decode failure deletes the entry and reports a
// miss: a corrupt cache value must never poison aggregation.
func (l *badgerLayer) get(key string) (*actor.Snapshot, bool, error) {
	start := time.Now()
	defer func() { l.resp.record(time.Since(start)) }()

	var raw []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	l.diskOps.Add(1)

	if errors.Is(err, badger.ErrKeyNotFound) {
		l.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		l.misses.Add(1)
		return nil, false, fmt.Errorf("%w: read %q: %v", ErrTierUnavailable, key, err)
	}

	var snap actor.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		l.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_, _ = l.delete(key)
		l.misses.Add(1)
		return nil, false, nil
	}
	l.hits.Add(1)
	return &snap, true, nil
}

// set writes a snapshot with a Badger-native TTL.
func (l *badgerLayer) set(key string, snap *actor.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", key, err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	l.diskOps.Add(1)
	if err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrTierUnavailable, key, err)
	}
	l.sets.Add(1)
	return nil
}

// delete removes a key. Returns true when the key existed.
func (l *badgerLayer) delete(key string) (bool, error) {
	existed := false
	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			existed = true
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Delete([]byte(key))
	})
	l.diskOps.Add(1)
	if err != nil {
		return false, fmt.Errorf("%w: delete %q: %v", ErrTierUnavailable, key, err)
	}
	if existed {
		l.deletes.Add(1)
	}
	return existed, nil
}

// clear drops every entry.
func (l *badgerLayer) clear() error {
	if err := l.db.DropAll(); err != nil {
		return fmt.Errorf("%w: drop all: %v", ErrTierUnavailable, err)
	}
	return nil
}

// len counts live keys. Walks the key index only, not values.
func (l *badgerLayer) len() int {
	count := 0
	_ = l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// stats returns a point-in-time counter view. DiskUsage is the LSM plus
// value-log footprint reported by Badger.
func (l *badgerLayer) stats() LayerStats {
	lsm, vlog := l.db.Size()
	return LayerStats{
		Hits:            l.hits.Load(),
		Misses:          l.misses.Load(),
		Sets:            l.sets.Load(),
		Deletes:         l.deletes.Load(),
		EntryCount:      int64(l.len()),
		DiskUsage:       lsm + vlog,
		DiskOperations:  l.diskOps.Load(),
		FileOperations:  l.fileOps.Load(),
		AvgResponseTime: l.resp.avg(),
		MaxResponseTime: l.resp.max(),
	}
}

// close stops the GC goroutine and closes the database.
func (l *badgerLayer) close() error {
	if l.gcStop != nil {
		close(l.gcStop)
		<-l.gcDone
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

// runGC reclaims value-log space on a ticker until close.
func (l *badgerLayer) runGC(interval time.Duration, discardRatio float64) {
	defer close(l.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.gcStop:
			return
		case <-ticker.C:
			l.fileOps.Add(1)
			// Badger reclaims at most one log file per call; loop until
			// there is nothing left to rewrite.
			for {
				err := l.db.RunValueLogGC(discardRatio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						l.logger.Warn("badger value log gc", "error", err)
					}
					break
				}
			}
		}
	}
}
