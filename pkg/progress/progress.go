/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package progress defines the callback protocol shared by every
// long-running operation (install, download, instance start/stop).
// A sink may be invoked from any goroutine.
package progress

// Sink receives advisory progress updates as (current, total, message).
type Sink func(current, total int, message string)

// Nop is a sink that discards every update. Operation code must
// tolerate it; callers that do not care about progress pass Nop.
func Nop(int, int, string) {}

// Safe returns p, or Nop when p is nil, so operation code can invoke
// the sink unconditionally.
func Safe(p Sink) Sink {
	if p == nil {
		return Nop
	}
	return p
}
