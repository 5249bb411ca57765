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
)

func TestInitStdoutExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "stdout"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	require.NoError(t, shutdown(context.Background()))
}

func TestInitNoneExportersIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitPrometheusExposesHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	assert.NotNil(t, MetricsHandler())
}

func TestInitRejectsUnknownExporters(t *testing.T) {
	t.Run("trace", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TraceExporter = "carrier-pigeon"
		cfg.MetricExporter = "none"

		_, err := Init(context.Background(), cfg)
		require.ErrorIs(t, err, ErrUnknownExporter)
	})

	t.Run("metric", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TraceExporter = "none"
		cfg.MetricExporter = "carrier-pigeon"

		_, err := Init(context.Background(), cfg)
		require.ErrorIs(t, err, ErrUnknownExporter)
	})
}

func TestInitRejectsNilContext(t *testing.T) {
	//nolint:staticcheck // the nil guard is the behavior under test
	_, err := Init(nil, DefaultConfig())
	require.ErrorIs(t, err, ErrNilContext)
}

func TestDefaultConfigHonorsEnvironment(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("ACTORCORE_ENV", "staging")

	cfg := DefaultConfig()
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "actorcore", cfg.ServiceName)
}
