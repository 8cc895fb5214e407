// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time operations for testability. Production code
// injects Real(); tests inject Fake() with deterministic control over
// the challenge deadline.
//
// Any function that would call time.Now, time.After, time.AfterFunc,
// or time.Sleep should instead accept a Clock (or be a method on a
// struct with a Clock field).
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for duration d, then calls f in its own
	// goroutine. Returns a Timer whose Stop cancels the pending call.
	// If d <= 0, f runs immediately.
	AfterFunc(d time.Duration, f func()) *Timer

	// Sleep pauses the current goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Timer is a scheduled one-shot call created by AfterFunc.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. Returns true if the call stops
// the timer, false if the timer has already fired or been stopped.
// A false return does NOT mean the callback has finished — it may
// still be running concurrently, which is why challenge expiry
// re-checks the table before acting.
func (t *Timer) Stop() bool { return t.stopFunc() }
