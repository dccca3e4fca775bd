// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"fmt"
)

// Error codes carried in RemoteError.Code. The negative codes follow
// the JSON-RPC 2.0 reserved range.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	// CodeHandler is used for plain errors returned by handlers.
	CodeHandler = -32000
)

var (
	// ErrMethodNotFound matches a RemoteError with CodeMethodNotFound
	// under errors.Is.
	ErrMethodNotFound = errors.New("rpc: method not found")

	// ErrInvalidParams matches a RemoteError with CodeInvalidParams
	// under errors.Is. Handlers may also return it directly.
	ErrInvalidParams = errors.New("rpc: invalid params")

	// ErrDestroyed completes calls that were pending when the
	// endpoint was destroyed, and is returned by Call and Notify
	// afterwards.
	ErrDestroyed = errors.New("rpc: endpoint destroyed")

	// ErrTimeout completes calls that received no response within
	// Config.CallTimeout.
	ErrTimeout = errors.New("rpc: call timed out")
)

// RemoteError is a failure reported by the peer.
type RemoteError struct {
	// Method is the method that failed. Filled in by the caller's
	// side; not sent on the wire.
	Method string `cbor:"-"`

	Code    int    `cbor:"code"`
	Message string `cbor:"message"`
}

func (e *RemoteError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error on %q (%d): %s", e.Method, e.Code, e.Message)
}

// Is matches the package's sentinel errors by code.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrMethodNotFound:
		return e.Code == CodeMethodNotFound
	case ErrInvalidParams:
		return e.Code == CodeInvalidParams
	}
	return false
}

// toRemoteError converts a handler's error to its wire form.
func toRemoteError(err error) *RemoteError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return &RemoteError{Code: remote.Code, Message: remote.Message}
	}
	if errors.Is(err, ErrInvalidParams) {
		return &RemoteError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return &RemoteError{Code: CodeHandler, Message: err.Error()}
}
