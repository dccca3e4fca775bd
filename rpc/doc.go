// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc runs request/response calls and one-way notifications
// over a [socket.Socket].
//
// Every message on the channel is one base64 CBOR envelope. A request
// names a method and carries optional params; a call also carries a
// non-zero ID that its response echoes. Responses carry either data
// or a [RemoteError]:
//
//	{id: 7, method: "resize", params: {...}}      call
//	{method: "log", params: {...}}               notification
//	{id: 7, ok: true, data: {...}}               success
//	{id: 7, error: {code: -32601, message: ...}} failure
//
// Both ends are symmetric: each may register handlers with
// [Endpoint.Handle] and issue calls. Calls made before the handshake
// completes are queued by the socket. Results arrive through the
// done callback on a later turn of the event loop; a call is
// abandoned with [ErrTimeout] after [Config.CallTimeout] and with
// [ErrDestroyed] when the endpoint is destroyed.
package rpc
