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
	"sync/atomic"
	"time"
)

// Layer names the cache tiers.
type Layer string

const (
	LayerL1 Layer = "l1"
	LayerL2 Layer = "l2"
	LayerL3 Layer = "l3"
)

// LayerStats is a point-in-time view of one tier's counters.
type LayerStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`

	// EntryCount and MaxEntries describe occupancy.
	EntryCount int64 `json:"entry_count"`
	MaxEntries int64 `json:"max_entries"`

	// MemoryUsage is the estimated resident bytes (in-memory tiers).
	MemoryUsage int64 `json:"memory_usage"`

	// DiskUsage is the on-disk bytes (durable tier only).
	DiskUsage int64 `json:"disk_usage"`

	// FileOperations counts durable-tier maintenance passes (GC).
	FileOperations int64 `json:"file_operations"`

	// DiskOperations counts durable-tier reads and writes.
	DiskOperations int64 `json:"disk_operations"`

	// AvgResponseTime and MaxResponseTime cover Get operations.
	AvgResponseTime time.Duration `json:"avg_response_time"`
	MaxResponseTime time.Duration `json:"max_response_time"`
}

// HitRatio returns hits / (hits + misses), or 0 with no traffic.
func (s LayerStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// UsageRatio returns occupancy as a fraction of capacity.
func (s LayerStats) UsageRatio() float64 {
	if s.MaxEntries == 0 {
		return 0
	}
	return float64(s.EntryCount) / float64(s.MaxEntries)
}

// Stats aggregates all tiers.
type Stats struct {
	L1 LayerStats `json:"l1"`
	L2 LayerStats `json:"l2"`
	L3 LayerStats `json:"l3"`
}

// TotalHits sums hits across tiers.
func (s Stats) TotalHits() int64 {
	return s.L1.Hits + s.L2.Hits + s.L3.Hits
}

// TotalMisses sums misses across tiers.
func (s Stats) TotalMisses() int64 {
	return s.L1.Misses + s.L2.Misses + s.L3.Misses
}

// HitRatio returns the aggregated hit ratio.
func (s Stats) HitRatio() float64 {
	total := s.TotalHits() + s.TotalMisses()
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits()) / float64(total)
}

// ResponseTimeScore maps average L1 read latency into [0,1]; 1 means
// sub-microsecond reads, 0 means a millisecond or slower.
func (s Stats) ResponseTimeScore() float64 {
	avgMicros := float64(s.L1.AvgResponseTime.Microseconds())
	score := 1 - min(avgMicros/1000, 1)
	return max(score, 0)
}

// MemoryDistributionScore is the share of in-memory bytes resident in L1.
// A hot L1 scores high; everything swapped down to L2 scores low.
func (s Stats) MemoryDistributionScore() float64 {
	total := s.L1.MemoryUsage + s.L2.MemoryUsage
	if total == 0 {
		return 0
	}
	return float64(s.L1.MemoryUsage) / float64(total)
}

// EfficiencyScore blends hit ratio, response time, and memory placement:
//
//	0.4*hit_ratio + 0.3*response_time_score + 0.3*memory_distribution_score
func (s Stats) EfficiencyScore() float64 {
	return 0.4*s.HitRatio() + 0.3*s.ResponseTimeScore() + 0.3*s.MemoryDistributionScore()
}

// HealthState classifies a tier's condition.
type HealthState int

const (
	// HealthOK means the tier operates normally.
	HealthOK HealthState = iota
	// HealthWarning means the tier is above 90% capacity.
	HealthWarning
	// HealthCritical means the tier is failing I/O.
	HealthCritical
)

// String returns the display name of the state.
func (h HealthState) String() string {
	switch h {
	case HealthOK:
		return "healthy"
	case HealthWarning:
		return "warning"
	case HealthCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LayerHealth reports one tier's condition.
type LayerHealth struct {
	Layer      Layer       `json:"layer"`
	State      HealthState `json:"state"`
	UsageRatio float64     `json:"usage_ratio"`
	Message    string      `json:"message,omitempty"`
}

// HealthReport reports the whole cache's condition; Overall is the worst
// tier state.
type HealthReport struct {
	Overall HealthState   `json:"overall"`
	Layers  []LayerHealth `json:"layers"`
}

// warningUsageRatio is the occupancy fraction above which a tier reports
// Warning.
const warningUsageRatio = 0.9

// WarmingStats is a point-in-time view of warming activity.
type WarmingStats struct {
	TotalOperations int64         `json:"total_operations"`
	Successes       int64         `json:"successes"`
	Failures        int64         `json:"failures"`
	TotalDuration   time.Duration `json:"total_duration"`
	LastWarming     time.Time     `json:"last_warming,omitzero"`
}

// SuccessRate returns successes / total, or 0 with no runs.
func (w WarmingStats) SuccessRate() float64 {
	if w.TotalOperations == 0 {
		return 0
	}
	return float64(w.Successes) / float64(w.TotalOperations)
}

// FailureRate returns failures / total, or 0 with no runs.
func (w WarmingStats) FailureRate() float64 {
	if w.TotalOperations == 0 {
		return 0
	}
	return float64(w.Failures) / float64(w.TotalOperations)
}

// AvgDuration returns the mean duration of one warming operation.
func (w WarmingStats) AvgDuration() time.Duration {
	if w.TotalOperations == 0 {
		return 0
	}
	return w.TotalDuration / time.Duration(w.TotalOperations)
}

// responseTracker accumulates Get latencies with atomic counters.
type responseTracker struct {
	totalNs atomic.Int64
	count   atomic.Int64
	maxNs   atomic.Int64
}

func (t *responseTracker) record(d time.Duration) {
	ns := d.Nanoseconds()
	t.totalNs.Add(ns)
	t.count.Add(1)
	for {
		cur := t.maxNs.Load()
		if ns <= cur || t.maxNs.CompareAndSwap(cur, ns) {
			return
		}
	}
}

func (t *responseTracker) avg() time.Duration {
	n := t.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(t.totalNs.Load() / n)
}

func (t *responseTracker) max() time.Duration {
	return time.Duration(t.maxNs.Load())
}
