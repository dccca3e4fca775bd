// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
)

// Loop is a single-threaded task queue. The zero value is not usable;
// construct with [New].
type Loop struct {
	clock clock.Clock

	mu    sync.Mutex
	queue []func()

	// wake has capacity 1 and receives a token whenever a task is
	// posted, so Run can block without polling.
	wake chan struct{}
}

// New creates a Loop whose timers are driven by c.
func New(c clock.Clock) *Loop {
	return &Loop{
		clock: c,
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post schedules task to run on a later turn of the loop. Safe to call
// from any goroutine.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc posts task to the loop once d has elapsed on the loop's
// clock. Stopping the returned timer before it fires prevents the
// post; a task that has already been posted still runs.
func (l *Loop) AfterFunc(d time.Duration, task func()) *clock.Timer {
	return l.clock.AfterFunc(d, func() { l.Post(task) })
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// next pops the oldest queued task.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

// Step runs the oldest queued task, if any, and reports whether one
// ran. Tests use it to observe state between turns.
func (l *Loop) Step() bool {
	task, ok := l.next()
	if !ok {
		return false
	}
	task()
	return true
}

// RunUntilIdle runs queued tasks, including tasks posted by the tasks
// it runs, until the queue is empty. Returns the number of tasks run.
// Must not be called concurrently with Run or from inside a task.
func (l *Loop) RunUntilIdle() int {
	count := 0
	for {
		task, ok := l.next()
		if !ok {
			return count
		}
		task()
		count++
	}
}

// Run executes tasks as they are posted until ctx is cancelled.
// Returns ctx.Err(). Tasks still queued at cancellation are left in
// the queue.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, ok := l.next()
		if ok {
			task()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
