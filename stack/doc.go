// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stack composes messaging elements into a linear pipeline.
//
// A [Stack] is an ordered chain: index 0 is the top (closest to the
// application), the last index is the bottom (the transport that
// performs raw delivery). A message given to [Stack.Outgoing] enters
// the top element and each element forwards it downward through its
// [Link]; a message arriving from the wire enters the bottom element
// and travels upward the same way until it reaches the application's
// [Receiver].
//
// The stack owns its elements in a slice. An element never holds a
// pointer to its neighbors: its Link is a (stack, index) pair that
// resolves the neighbor at call time, so adjacent elements have no
// lifetime relationship and any element satisfying [Element] (and
// [Receiver], for everything above the bottom) can occupy a slot
// without its neighbors changing.
//
// Lifecycle is decided by the stack, not the elements: [Stack.Init]
// initializes top to bottom and [Stack.Destroy] destroys top to bottom,
// exactly once. After Destroy every Link is inert, so late callbacks
// from an element are absorbed as no-ops.
package stack
