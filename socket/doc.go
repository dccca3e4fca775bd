// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package socket is the application-facing end of a channel. A
// [Socket] assembles a stack of a [behavior.Queue], any extra
// behaviors, and a [transport.PostMessage], initializes it, and
// exposes plain callbacks for messages and readiness.
//
// The host constructs a Socket with the guest document's URL. The
// guest document constructs its Socket from its own location with
// [GuestConfig], which recovers the host's origin and the channel
// name from the frame URL.
//
// Messages posted before the handshake completes are queued and sent
// in order once it does.
package socket
