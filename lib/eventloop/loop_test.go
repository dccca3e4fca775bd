// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPostRunsInFIFOOrder(t *testing.T) {
	loop := New(clock.Fake(epoch))
	var order []int
	for i := range 5 {
		loop.Post(func() { order = append(order, i) })
	}

	if ran := loop.RunUntilIdle(); ran != 5 {
		t.Fatalf("RunUntilIdle ran %d tasks, want 5", ran)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

// TestPostFromTaskRunsOnLaterTurn verifies that a task posted by a
// running task does not execute until the posting task has returned
// and every previously queued task has run.
func TestPostFromTaskRunsOnLaterTurn(t *testing.T) {
	loop := New(clock.Fake(epoch))
	var trace []string

	loop.Post(func() {
		trace = append(trace, "first:start")
		loop.Post(func() { trace = append(trace, "deferred") })
		trace = append(trace, "first:end")
	})
	loop.Post(func() { trace = append(trace, "second") })

	loop.RunUntilIdle()

	want := []string{"first:start", "first:end", "second", "deferred"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestAfterFuncPostsWhenClockAdvances(t *testing.T) {
	fake := clock.Fake(epoch)
	loop := New(fake)
	fired := false
	loop.AfterFunc(time.Second, func() { fired = true })

	loop.RunUntilIdle()
	if fired {
		t.Fatal("timer task ran before the clock advanced")
	}

	fake.Advance(time.Second)
	if loop.Pending() != 1 {
		t.Fatalf("Pending() = %d after advance, want 1", loop.Pending())
	}
	if fired {
		t.Fatal("timer task ran outside the loop")
	}
	loop.RunUntilIdle()
	if !fired {
		t.Fatal("timer task did not run")
	}
}

func TestAfterFuncStopPreventsPost(t *testing.T) {
	fake := clock.Fake(epoch)
	loop := New(fake)
	timer := loop.AfterFunc(time.Second, func() { t.Error("stopped timer task ran") })
	timer.Stop()
	fake.Advance(time.Minute)
	if ran := loop.RunUntilIdle(); ran != 0 {
		t.Fatalf("RunUntilIdle ran %d tasks, want 0", ran)
	}
}

func TestRunProcessesTasksPostedFromOtherGoroutines(t *testing.T) {
	loop := New(clock.Real())
	stop := testutil.StartRunner(t, loop)

	done := make(chan struct{})
	go loop.Post(func() { close(done) })
	testutil.RequireClosed(t, done, "posted task")

	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestStepRunsOneTurn(t *testing.T) {
	loop := New(clock.Fake(epoch))
	ran := 0
	loop.Post(func() {
		ran++
		loop.Post(func() { ran++ })
	})

	if !loop.Step() || ran != 1 {
		t.Fatalf("after first Step ran = %d, want 1", ran)
	}
	if !loop.Step() || ran != 2 {
		t.Fatalf("after second Step ran = %d, want 2", ran)
	}
	if loop.Step() {
		t.Fatal("Step on an empty queue reported a task")
	}
}
