// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestFakeNow(t *testing.T) {
	c := Fake(testEpoch)
	if !c.Now().Equal(testEpoch) {
		t.Errorf("Now: got %v, want %v", c.Now(), testEpoch)
	}
	c.Advance(5 * time.Minute)
	if !c.Now().Equal(testEpoch.Add(5 * time.Minute)) {
		t.Errorf("Now after advance: got %v", c.Now())
	}
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	c := Fake(testEpoch)

	var fired atomic.Bool
	c.AfterFunc(30*time.Minute, func() { fired.Store(true) })

	c.Advance(29 * time.Minute)
	if fired.Load() {
		t.Fatal("fired before deadline")
	}

	c.Advance(time.Minute)
	if !fired.Load() {
		t.Fatal("did not fire at deadline")
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	c := Fake(testEpoch)

	var fired atomic.Bool
	timer := c.AfterFunc(time.Hour, func() { fired.Store(true) })

	if !timer.Stop() {
		t.Fatal("Stop: got false for an armed timer")
	}
	if timer.Stop() {
		t.Fatal("Stop: got true for an already stopped timer")
	}

	c.Advance(2 * time.Hour)
	if fired.Load() {
		t.Fatal("stopped timer fired")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount: got %d, want 0", c.PendingCount())
	}
}

func TestFakeAfterFuncStopAfterFire(t *testing.T) {
	c := Fake(testEpoch)
	timer := c.AfterFunc(time.Minute, func() {})
	c.Advance(time.Minute)
	if timer.Stop() {
		t.Fatal("Stop: got true for a fired timer")
	}
}

func TestFakeAfterFuncZeroDuration(t *testing.T) {
	c := Fake(testEpoch)
	fired := false
	c.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatal("zero-duration AfterFunc did not run synchronously")
	}
}

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := Fake(testEpoch)

	var order []int
	c.AfterFunc(3*time.Minute, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Minute, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Minute, func() { order = append(order, 2) })

	c.Advance(5 * time.Minute)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("fire order: got %v, want [1 2 3]", order)
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(testEpoch)

	done := make(chan struct{})
	go func() {
		c.Sleep(10 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(10 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance past deadline")
	}
}

func TestFakeAfter(t *testing.T) {
	c := Fake(testEpoch)
	channel := c.After(time.Minute)

	select {
	case <-channel:
		t.Fatal("After fired before deadline")
	default:
	}

	c.Advance(time.Minute)
	select {
	case fireTime := <-channel:
		if !fireTime.Equal(testEpoch.Add(time.Minute)) {
			t.Errorf("fire time: got %v", fireTime)
		}
	default:
		t.Fatal("After did not fire at deadline")
	}
}
