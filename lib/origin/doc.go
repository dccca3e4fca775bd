// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package origin derives the scheme+host+port identity that
// cross-context messaging authenticates against.
//
// [Of] canonicalizes a URL to its origin, [AppendQuery] builds the
// URL a child frame is created at, and [Resolve] determines the origin
// of an inbound message event.
//
// # Resolution precedence
//
// Resolve tries three sources in a fixed order and the order is part
// of the contract:
//
//  1. An explicit origin field, trusted as-is.
//  2. A legacy URI field, reduced to its origin with [Of].
//  3. A legacy domain-only field, combined with the local page's
//     scheme.
//
// The third tier is inherited from older platforms and is weak: it
// assumes the peer uses the same scheme as the local page and yields
// the wrong origin whenever it does not (an https page receiving from
// an http peer resolves the peer as https). Strengthening it changes
// which events a transport accepts, so it is kept as-is.
package origin
