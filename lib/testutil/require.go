// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"testing"
	"time"
)

// Timeout bounds every wait in this package. Anything slower is a hang.
const Timeout = 5 * time.Second

// RequireReceive returns the next value sent on ch, failing the test
// if ch is closed or nothing arrives within Timeout. what names the
// awaited event in the failure message.
func RequireReceive[T any](t testing.TB, ch <-chan T, what string) T {
	t.Helper()
	timer := time.NewTimer(Timeout)
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed without a value", what)
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received after %v", what, Timeout)
	}
	panic("unreachable")
}

// RequireClosed fails the test unless ch is closed within Timeout.
func RequireClosed(t testing.TB, ch <-chan struct{}, what string) {
	t.Helper()
	timer := time.NewTimer(Timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: not closed after %v", what, Timeout)
	}
}

// Runner is anything driven by a blocking Run, such as an event loop.
type Runner interface {
	Run(ctx context.Context) error
}

// StartRunner calls runner.Run on a new goroutine. The returned stop
// cancels it and returns Run's error; stop also runs at test cleanup,
// so a forgotten runner cannot outlive its test.
func StartRunner(t testing.TB, runner Runner) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan error, 1)
	go func() { returned <- runner.Run(ctx) }()

	var (
		stopped bool
		result  error
	)
	stop = func() error {
		if stopped {
			return result
		}
		stopped = true
		cancel()
		result = RequireReceive(t, returned, "Run returning")
		return result
	}
	t.Cleanup(func() { stop() })
	return stop
}
