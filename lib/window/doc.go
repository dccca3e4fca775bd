// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package window defines the platform surface a messaging stack runs
// against: the local execution context ([Global]), handles to other
// contexts ([Window]), child frame creation ([FrameCreator]), and the
// message event carried by the native delivery primitive
// ([MessageEvent]).
//
// The interfaces are deliberately narrow. A transport needs to post to
// a peer handle, listen for "message" events on its own global,
// schedule work on the next turn, and create one child frame; nothing
// else of the platform is visible to it. [sim] implements the surface
// in-process.
//
// Support for the native primitive is a capability, not a method: a
// Global that can itself receive postMessage also implements
// [Window]. Transports probe for it with a type assertion and refuse
// to construct without it.
//
// [sim]: github.com/bureau-foundation/xdm/lib/sim
package window
