// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event is the uniform subscribe/unsubscribe facility over a
// platform's native event notification.
//
// A [Target] is anything that dispatches named events (a page's
// global object, a frame). Handlers are wrapped in a [Listener] whose
// pointer identity is what [Unsubscribe] removes, since Go functions
// are not comparable. [Subscribe] and [Unsubscribe] are idempotent:
// subscribing a listener twice registers it once, and removing a
// listener that is not registered does nothing.
//
// [Registry] is a ready-made Target implementation with DOM dispatch
// semantics: listeners added during a dispatch do not see the event
// being dispatched, and listeners removed during a dispatch are not
// invoked if they have not run yet.
package event
