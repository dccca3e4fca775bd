// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/codec"
	"github.com/bureau-foundation/xdm/lib/window"
	"github.com/bureau-foundation/xdm/socket"
)

// HandlerFunc serves one method. params is the raw CBOR params of the
// request, empty when the caller sent none. The returned value is
// encoded as the response data; a nil value sends no data. Errors are
// sent as a RemoteError: return a *RemoteError to choose the code.
// For notifications the return values are discarded.
type HandlerFunc func(params codec.RawMessage) (any, error)

// DoneFunc receives the outcome of a call: the raw CBOR response data
// (possibly empty), or an error.
type DoneFunc func(data codec.RawMessage, err error)

// envelope is the single wire message type. Method set means request;
// otherwise it is a response to ID.
type envelope struct {
	ID     uint64           `cbor:"id,omitempty"`
	Method string           `cbor:"method,omitempty"`
	Params codec.RawMessage `cbor:"params,omitempty"`
	OK     bool             `cbor:"ok,omitempty"`
	Error  *RemoteError     `cbor:"error,omitempty"`
	Data   codec.RawMessage `cbor:"data,omitempty"`
}

// Config configures an Endpoint.
type Config struct {
	// Socket configures the underlying channel. OnMessage is
	// replaced by the endpoint; OnReady and OnFailure are kept.
	Socket socket.Config

	// CallTimeout abandons calls without a response after this long.
	// Zero waits forever.
	CallTimeout time.Duration

	// Logger receives diagnostics. Nil falls back to Socket.Logger,
	// then to discard.
	Logger *slog.Logger
}

type pendingCall struct {
	method string
	done   DoneFunc
	timer  *clock.Timer
}

// Endpoint is one side of an RPC channel. Confined to its context's
// event loop.
type Endpoint struct {
	global   window.Global
	config   Config
	logger   *slog.Logger
	socket   *socket.Socket
	handlers map[string]HandlerFunc
	pending  map[uint64]*pendingCall
	nextID   uint64

	destroyed bool
}

// New creates an Endpoint and its socket on global. Register handlers
// before returning control to the event loop; no message can arrive
// earlier.
func New(global window.Global, config Config) (*Endpoint, error) {
	logger := config.Logger
	if logger == nil {
		logger = config.Socket.Logger
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.CallTimeout < 0 {
		return nil, fmt.Errorf("rpc: negative call timeout %s", config.CallTimeout)
	}
	endpoint := &Endpoint{
		global:   global,
		config:   config,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		pending:  make(map[uint64]*pendingCall),
	}
	socketConfig := config.Socket
	socketConfig.OnMessage = endpoint.handleMessage
	s, err := socket.New(global, socketConfig)
	if err != nil {
		return nil, err
	}
	endpoint.socket = s
	return endpoint, nil
}

// Socket returns the underlying socket.
func (e *Endpoint) Socket() *socket.Socket { return e.socket }

// Handle registers handler for method. Panics if method is empty or
// already registered.
func (e *Endpoint) Handle(method string, handler HandlerFunc) {
	if method == "" {
		panic("rpc.Endpoint: empty method name")
	}
	if _, exists := e.handlers[method]; exists {
		panic(fmt.Sprintf("rpc.Endpoint: duplicate handler for method %q", method))
	}
	e.handlers[method] = handler
}

// Pending returns the number of calls awaiting a response.
func (e *Endpoint) Pending() int { return len(e.pending) }

// Call invokes method on the peer with params (nil for none). done is
// called exactly once, on a later turn, unless Call returns an error.
func (e *Endpoint) Call(method string, params any, done DoneFunc) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if method == "" {
		return fmt.Errorf("rpc: empty method name")
	}
	if done == nil {
		return fmt.Errorf("rpc: Call %q without a done callback, use Notify", method)
	}
	e.nextID++
	id := e.nextID
	request := envelope{ID: id, Method: method}
	if err := encodeParams(&request, params); err != nil {
		return fmt.Errorf("encoding params for %q: %w", method, err)
	}

	call := &pendingCall{method: method, done: done}
	if e.config.CallTimeout > 0 {
		call.timer = e.global.AfterFunc(e.config.CallTimeout, func() { e.expire(id) })
	}
	e.pending[id] = call
	if err := e.send(request); err != nil {
		delete(e.pending, id)
		if call.timer != nil {
			call.timer.Stop()
		}
		return fmt.Errorf("sending %q: %w", method, err)
	}
	return nil
}

// Notify invokes method on the peer without waiting for a result.
func (e *Endpoint) Notify(method string, params any) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if method == "" {
		return fmt.Errorf("rpc: empty method name")
	}
	request := envelope{Method: method}
	if err := encodeParams(&request, params); err != nil {
		return fmt.Errorf("encoding params for %q: %w", method, err)
	}
	if err := e.send(request); err != nil {
		return fmt.Errorf("sending %q: %w", method, err)
	}
	return nil
}

// Destroy tears down the socket and completes every pending call
// with ErrDestroyed, in the order the calls were made. Idempotent.
func (e *Endpoint) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.socket.Destroy()

	ids := make([]uint64, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	pending := e.pending
	e.pending = make(map[uint64]*pendingCall)
	for _, id := range ids {
		call := pending[id]
		if call.timer != nil {
			call.timer.Stop()
		}
		call.done(nil, ErrDestroyed)
	}
}

// Decode unmarshals response data or params into v. Empty data leaves
// v unchanged.
func Decode(data codec.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return codec.Unmarshal(data, v)
}

func encodeParams(request *envelope, params any) error {
	if params == nil {
		return nil
	}
	data, err := codec.Marshal(params)
	if err != nil {
		return err
	}
	request.Params = data
	return nil
}

func (e *Endpoint) send(message envelope) error {
	text, err := codec.EncodeText(message)
	if err != nil {
		return err
	}
	e.socket.PostMessage(text)
	return nil
}

func (e *Endpoint) expire(id uint64) {
	call, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	e.logger.Warn("rpc call timed out", "method", call.method, "id", id, "timeout", e.config.CallTimeout)
	call.done(nil, ErrTimeout)
}

func (e *Endpoint) handleMessage(message, origin string) {
	if e.destroyed {
		return
	}
	var received envelope
	if err := codec.DecodeText(message, &received); err != nil {
		e.logger.Debug("dropping undecodable rpc message", "origin", origin, "error", err)
		return
	}
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		if data, err := codec.Marshal(received); err == nil {
			if diagnostic, err := codec.Diagnose(data); err == nil {
				e.logger.Debug("rpc message", "origin", origin, "envelope", diagnostic)
			}
		}
	}
	if received.Method != "" {
		e.handleRequest(received)
		return
	}
	e.handleResponse(received)
}

func (e *Endpoint) handleRequest(request envelope) {
	handler, ok := e.handlers[request.Method]
	if !ok {
		if request.ID == 0 {
			e.logger.Debug("dropping notification for unknown method", "method", request.Method)
			return
		}
		e.reply(envelope{ID: request.ID, Error: &RemoteError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", request.Method),
		}})
		return
	}

	result, err := handler(request.Params)
	if request.ID == 0 {
		if err != nil {
			e.logger.Warn("notification handler failed", "method", request.Method, "error", err)
		}
		return
	}
	if err != nil {
		e.reply(envelope{ID: request.ID, Error: toRemoteError(err)})
		return
	}
	response := envelope{ID: request.ID, OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			e.logger.Error("encoding rpc result failed", "method", request.Method, "error", err)
			e.reply(envelope{ID: request.ID, Error: &RemoteError{
				Code:    CodeInternal,
				Message: "encoding result failed",
			}})
			return
		}
		response.Data = data
	}
	e.reply(response)
}

func (e *Endpoint) reply(response envelope) {
	if err := e.send(response); err != nil {
		e.logger.Error("sending rpc response failed", "id", response.ID, "error", err)
	}
}

func (e *Endpoint) handleResponse(response envelope) {
	call, ok := e.pending[response.ID]
	if !ok {
		e.logger.Debug("dropping response to unknown call", "id", response.ID)
		return
	}
	delete(e.pending, response.ID)
	if call.timer != nil {
		call.timer.Stop()
	}

	switch {
	case response.OK:
		call.done(response.Data, nil)
	case response.Error != nil:
		remote := *response.Error
		remote.Method = call.method
		call.done(nil, &remote)
	default:
		call.done(nil, &RemoteError{
			Method:  call.method,
			Code:    CodeInvalidRequest,
			Message: "response carries neither data nor error",
		})
	}
}
