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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("metrics-test"))
	require.NoError(t, err)

	assert.NotNil(t, m.ResolutionsTotal)
	assert.NotNil(t, m.ResolutionDuration)
	assert.NotNil(t, m.ActiveResolutions)
	assert.NotNil(t, m.StaleServesTotal)
	assert.NotNil(t, m.BudgetExceededTotal)
	assert.NotNil(t, m.SubsystemErrorsTotal)
	assert.NotNil(t, m.SubsystemDuration)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.CacheMissesTotal)
	assert.NotNil(t, m.RegistryOpsTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestMetricsRecordThroughReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("metrics-test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.ResolutionsTotal.Add(ctx, 2)
	m.CacheHitsTotal.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), counterValue(t, &rm, "actor_resolutions_total"))
	assert.Equal(t, int64(1), counterValue(t, &rm, "actor_cache_hits_total"))
}

func TestRegisterCacheEfficiency(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	meter := mp.Meter("metrics-test")
	m, err := NewMetrics(meter)
	require.NoError(t, err)

	reg, err := m.RegisterCacheEfficiency(meter, func() float64 { return 0.75 })
	require.NoError(t, err)
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.InDelta(t, 0.75, gaugeValue(t, &rm, "actor_cache_efficiency_score"), 1e-9)
}

// counterValue sums an int64 counter across its attribute sets.
func counterValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

// gaugeValue returns the single data point of a float64 gauge.
func gaugeValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) float64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			g, ok := met.Data.(metricdata.Gauge[float64])
			require.True(t, ok, "%s is not a float64 gauge", name)
			require.Len(t, g.DataPoints, 1)
			return g.DataPoints[0].Value
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}
