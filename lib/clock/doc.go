// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source behind the
// event loop's timers.
//
// Production code never calls time.Now or time.AfterFunc directly. The
// [eventloop] package accepts a [Clock]; [Real] provides the standard
// library behavior, and [Fake] provides a deterministic clock that
// moves only when Advance is called. Handshake timeouts and any other
// delayed task are therefore testable without sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	loop := eventloop.New(fake)
//	// ... schedule work with loop.AfterFunc ...
//	fake.Advance(5 * time.Second) // timer callbacks post their tasks
//	loop.RunUntilIdle()           // the posted tasks run
//
// [eventloop]: github.com/bureau-foundation/xdm/lib/eventloop
package clock
