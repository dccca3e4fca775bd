// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the bottom element of a messaging
// stack: a channel over the platform's native cross-context message
// primitive (window.Window.PostMessage).
//
// Two roles share one state machine. The host creates a child frame
// at the remote URL, passing its own origin and the channel name in
// the frame URL's query string (see [FrameURL]), and waits for the
// guest to announce readiness with the [ReadySentinel]. The guest is
// the document loaded inside that frame: it reads its configuration
// back out of its location (see [ParseFrameQuery]), subscribes to
// messages, and sends the sentinel to its parent. Each side reports
// readiness upward through [stack.Link.Callback] on a later turn of the
// event loop, never synchronously.
//
// Every data message on the wire is the channel name, one space, and
// the payload (see [Frame]). Inbound messages are authenticated by
// origin before they reach the stack: the sender's origin is resolved
// with origin.Resolve and compared for exact equality against the
// origin of the configured remote URL. Messages from other origins and
// messages that do not carry this channel's prefix are dropped
// silently, which lets several channels share one context's message
// primitive. [Config.OnDrop] observes drops without changing them.
//
// The handshake listener on the host matches only the sentinel string
// and does not authenticate the sender's origin. Readiness is a
// liveness signal; every data message is authenticated independently.
//
// On the host, readiness does not wait for the frame's load event. A
// platform may deliver the sentinel first; the host then sends through
// the sentinel event's Source until the load hands it the frame's own
// handle. Where the platform supplies no Source, messages sent in that
// window are discarded, as they always were by this protocol.
//
// A failed handshake detaches the host's frame, and a transport sends
// nothing unless it is in StateReady.
//
// A transport is confined to its context's event loop. None of its
// methods are safe for concurrent use.
package transport
