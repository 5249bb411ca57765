// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry for the aggregation core.
//
// The philosophy: be opinionated about the API, flexible about the
// backend. Code instruments against the OTel metric and trace APIs; this
// package decides where the data goes — Prometheus scrape endpoint for
// metrics by default, OTLP for traces, stdout for local debugging, or
// nothing at all. Embedding services call Init once at startup and hand
// the resulting Metrics into the aggregator and cache.
package telemetry
