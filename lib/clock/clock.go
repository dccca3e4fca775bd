// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source behind an event loop.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. With Real, f runs on its
	// own goroutine, so loop code hands f's work to the loop rather
	// than touching loop state directly.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop cancels the call. Reports false if it already ran or was
// already stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) *Timer {
	return &Timer{stopFunc: time.AfterFunc(d, f).Stop}
}
