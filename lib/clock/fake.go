// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Fake returns a FakeClock reading initial. Time stands still until
// Advance or AdvanceToNext is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Timer callbacks run
// synchronously inside Advance, one at a time, with Now reading the
// callback's own deadline. A callback may schedule further timers;
// those fire in the same Advance when their deadline is within it.
// Advance must not be called from a callback.
//
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	timers  timerHeap
	// sequence orders timers that share a deadline by creation.
	sequence uint64
	active   int
}

type fakeTimer struct {
	deadline time.Time
	sequence uint64
	callback func()
	done     bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules f for d after the current fake time. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	c.sequence++
	timer := &fakeTimer{deadline: c.current.Add(d), sequence: c.sequence, callback: f}
	heap.Push(&c.timers, timer)
	c.active++
	c.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.done {
			return false
		}
		timer.done = true
		c.active--
		return true
	}}
}

// Advance moves the clock forward by d, firing every timer whose
// deadline is reached in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()
	c.advanceTo(target)
}

// AdvanceToNext moves the clock to the earliest pending deadline and
// fires the timers due then. Reports false, leaving the clock alone,
// when no timer is pending.
func (c *FakeClock) AdvanceToNext() bool {
	c.mu.Lock()
	c.discardDone()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return false
	}
	target := c.timers[0].deadline
	c.mu.Unlock()
	c.advanceTo(target)
	return true
}

func (c *FakeClock) advanceTo(target time.Time) {
	for {
		c.mu.Lock()
		c.discardDone()
		if len(c.timers) == 0 || c.timers[0].deadline.After(target) {
			if target.After(c.current) {
				c.current = target
			}
			c.mu.Unlock()
			return
		}
		timer := heap.Pop(&c.timers).(*fakeTimer)
		timer.done = true
		c.active--
		if timer.deadline.After(c.current) {
			c.current = timer.deadline
		}
		c.mu.Unlock()

		timer.callback()
	}
}

// discardDone drops stopped timers from the top of the heap. Callers
// hold c.mu.
func (c *FakeClock) discardDone() {
	for len(c.timers) > 0 && c.timers[0].done {
		heap.Pop(&c.timers)
	}
}

// Pending returns the number of timers that have neither fired nor
// been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// timerHeap is a min-heap by deadline, then creation order.
type timerHeap []*fakeTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].sequence < h[j].sequence
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*fakeTimer)) }

func (h *timerHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return last
}
