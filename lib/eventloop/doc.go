// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventloop provides the single-threaded cooperative scheduler
// that every element of a messaging stack runs on.
//
// A [Loop] owns a FIFO task queue. Each task is one turn; a task posted
// while another is running executes after the current turn has fully
// unwound and after every task queued before it. Stack code relies on
// this to break synchronous re-entrancy: a transport that finishes its
// handshake inside an event listener posts the readiness callback
// instead of calling it inline.
//
// [Loop.Post] and the callbacks of timers created by [Loop.AfterFunc]
// may be invoked from any goroutine. Tasks themselves only ever run on
// the goroutine driving the loop ([Loop.Run] in production,
// [Loop.RunUntilIdle] in tests), so code running inside a task needs
// no locking.
package eventloop
