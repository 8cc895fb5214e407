// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// The challenge window is thirty minutes; tests cannot wait that long.
// Production code takes a Clock and uses Real(); tests use Fake(),
// whose time advances only when Advance is called.
//
// FakeClock synchronization: a goroutine calling Sleep, After, or
// AfterFunc on a FakeClock registers a pending waiter. Tests call
// WaitForTimers to block until the expected waiters exist, then
// Advance to fire them deterministically:
//
//	c := clock.Fake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
//	manager := vetting.NewManager(vetting.ManagerConfig{Clock: c, ...})
//	// ... start a challenge (arms the expiry timer) ...
//	c.WaitForTimers(1)
//	c.Advance(30 * time.Minute) // expiry fires synchronously
package clock
