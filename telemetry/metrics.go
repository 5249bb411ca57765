// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the aggregation core.
//
// Description:
//
//	Provides standard counters, histograms, and gauges for resolutions,
//	subsystem invocations, cache traffic, and registry operations.
//	All metrics use the "actor_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Resolution Metrics ---

	// ResolutionsTotal counts resolve calls by outcome.
	ResolutionsTotal metric.Int64Counter

	// ResolutionDuration records resolve duration in seconds.
	ResolutionDuration metric.Float64Histogram

	// ActiveResolutions tracks in-flight resolve calls.
	ActiveResolutions metric.Int64UpDownCounter

	// StaleServesTotal counts stale snapshots served under time pressure.
	StaleServesTotal metric.Int64Counter

	// BudgetExceededTotal counts resolves that overran the time budget.
	BudgetExceededTotal metric.Int64Counter

	// --- Subsystem Metrics ---

	// SubsystemErrorsTotal counts isolated subsystem failures by system.
	SubsystemErrorsTotal metric.Int64Counter

	// SubsystemDuration records one subsystem's contribute duration in seconds.
	SubsystemDuration metric.Float64Histogram

	// --- Cache Metrics ---

	// CacheHitsTotal counts snapshot cache hits.
	CacheHitsTotal metric.Int64Counter

	// CacheMissesTotal counts snapshot cache misses.
	CacheMissesTotal metric.Int64Counter

	// CacheEfficiency reports the blended cache efficiency score [0,1].
	CacheEfficiency metric.Float64ObservableGauge

	// --- Registry Metrics ---

	// RegistryOpsTotal counts registry operations by type.
	RegistryOpsTotal metric.Int64Counter

	// --- Error Metrics ---

	// ErrorsTotal counts errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all instruments initialized.
//	error - Non-nil if metric registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Resolution Metrics ---
	m.ResolutionsTotal, err = meter.Int64Counter(
		"actor_resolutions_total",
		metric.WithDescription("Total resolve calls"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create resolutions_total: %w", err)
	}

	m.ResolutionDuration, err = meter.Float64Histogram(
		"actor_resolution_duration_seconds",
		metric.WithDescription("Resolve duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create resolution_duration: %w", err)
	}

	m.ActiveResolutions, err = meter.Int64UpDownCounter(
		"actor_active_resolutions",
		metric.WithDescription("Currently in-flight resolve calls"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create active_resolutions: %w", err)
	}

	m.StaleServesTotal, err = meter.Int64Counter(
		"actor_stale_serves_total",
		metric.WithDescription("Stale snapshots served under time pressure"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stale_serves_total: %w", err)
	}

	m.BudgetExceededTotal, err = meter.Int64Counter(
		"actor_budget_exceeded_total",
		metric.WithDescription("Resolves that overran the time budget"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create budget_exceeded_total: %w", err)
	}

	// --- Subsystem Metrics ---
	m.SubsystemErrorsTotal, err = meter.Int64Counter(
		"actor_subsystem_errors_total",
		metric.WithDescription("Isolated subsystem failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create subsystem_errors_total: %w", err)
	}

	m.SubsystemDuration, err = meter.Float64Histogram(
		"actor_subsystem_duration_seconds",
		metric.WithDescription("Subsystem contribute duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5),
	)
	if err != nil {
		return nil, fmt.Errorf("create subsystem_duration: %w", err)
	}

	// --- Cache Metrics ---
	m.CacheHitsTotal, err = meter.Int64Counter(
		"actor_cache_hits_total",
		metric.WithDescription("Snapshot cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_hits_total: %w", err)
	}

	m.CacheMissesTotal, err = meter.Int64Counter(
		"actor_cache_misses_total",
		metric.WithDescription("Snapshot cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_misses_total: %w", err)
	}

	// Note: CacheEfficiency requires a callback registration, handled by
	// RegisterCacheEfficiency.

	// --- Registry Metrics ---
	m.RegistryOpsTotal, err = meter.Int64Counter(
		"actor_registry_ops_total",
		metric.WithDescription("Registry operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create registry_ops_total: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"actor_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RegisterCacheEfficiency registers a callback for the cache efficiency
// gauge. The callback is invoked on every scrape.
//
// Outputs:
//
//	metric.Registration - Registration handle for cleanup.
//	error - Non-nil if registration fails.
func (m *Metrics) RegisterCacheEfficiency(meter metric.Meter, scoreFunc func() float64) (metric.Registration, error) {
	var err error
	m.CacheEfficiency, err = meter.Float64ObservableGauge(
		"actor_cache_efficiency_score",
		metric.WithDescription("Blended cache efficiency score [0,1]"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_efficiency_score: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(m.CacheEfficiency, scoreFunc())
		return nil
	}, m.CacheEfficiency)
}
