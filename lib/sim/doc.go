// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sim is an in-process implementation of the [window]
// platform: pages with origins, child frames, and an asynchronous
// postMessage primitive, all driven by one [eventloop.Loop].
//
// A [Browser] maps document URLs to [Script]s, the Go stand-in for the
// script a document runs when it loads. [Browser.Open] creates a
// top-level page; [Page.CreateFrame] creates a child page whose script
// runs on a later turn, after which the creator's onLoad callback
// receives a handle to it.
//
// The delivery primitive behaves like the browser's: posting is
// fire-and-forget, a message is delivered on a later turn only if the
// recipient's origin matches the target origin (or the target origin
// is "*"), and every "message" listener on the recipient sees every
// delivered message. Which origin fields a delivered [window.MessageEvent]
// carries is selectable per page with [WithOriginMode], so the legacy
// resolution paths can be exercised. [WithoutPostMessage] produces a
// page whose global lacks the primitive entirely.
//
// Errors returned by message listeners are logged the way a browser
// reports uncaught listener exceptions, and dispatch continues.
//
// [window]: github.com/bureau-foundation/xdm/lib/window
package sim
