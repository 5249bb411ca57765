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

import "context"

type callContextKey struct{}

// WithCallContext attaches a per-call data map that subsystems can read
// during Contribute. ResolveWithContext uses this to pass its extra map
// through the standard Subsystem interface.
func WithCallContext(ctx context.Context, data map[string]any) context.Context {
	if len(data) == 0 {
		return ctx
	}
	return context.WithValue(ctx, callContextKey{}, data)
}

// CallContext returns the per-call data map attached by WithCallContext,
// or nil. Subsystems must treat the map as read-only.
func CallContext(ctx context.Context) map[string]any {
	data, _ := ctx.Value(callContextKey{}).(map[string]any)
	return data
}
