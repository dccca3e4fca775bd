// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/xdm/behavior"
	"github.com/bureau-foundation/xdm/lib/window"
	"github.com/bureau-foundation/xdm/stack"
	"github.com/bureau-foundation/xdm/transport"
)

// ErrUnsupportedProtocol is returned by GuestConfig when the host
// asked for a transport other than postMessage.
var ErrUnsupportedProtocol = errors.New("socket: unsupported transport protocol")

// Config configures a Socket.
type Config struct {
	// Remote is the guest document URL on the host, or the host's
	// origin on the guest.
	Remote string

	// Channel names the connection. Both sides must agree.
	Channel string

	// IsHost makes this side create the frame.
	IsHost bool

	// Container and FrameName place the host's frame.
	Container window.Container
	FrameName string

	// HandshakeTimeout is passed to the transport. Zero waits
	// forever.
	HandshakeTimeout time.Duration

	// MaxLength enables fragmenting of long messages. Both sides
	// must use the same value.
	MaxLength int

	// MaxPending bounds messages queued before readiness.
	MaxPending int

	// MaxMessage bounds reassembled inbound messages when
	// fragmenting is on. Zero uses the queue's default.
	MaxMessage int

	// Behaviors are inserted between the queue and the transport,
	// top first. Both sides must use matching behaviors in the same
	// order. The Socket takes ownership and destroys them.
	Behaviors []stack.Element

	// Logger is shared by every element. Nil discards.
	Logger *slog.Logger

	// OnMessage receives every inbound message with its verified
	// origin.
	OnMessage func(message, origin string)

	// OnReady is called once when the handshake completes.
	OnReady func()

	// OnFailure is called once if the handshake times out.
	OnFailure func()
}

// GuestConfig builds the guest side's configuration from the guest
// document's location. Callbacks and tuning fields are left for the
// caller to fill in.
func GuestConfig(location string) (Config, error) {
	query, err := transport.ParseFrameQuery(location)
	if err != nil {
		return Config{}, err
	}
	if query.Protocol != "" && query.Protocol != transport.ProtocolPostMessage {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, query.Protocol)
	}
	return Config{
		Remote:  query.Origin,
		Channel: query.Channel,
	}, nil
}

// Socket is one end of a channel.
type Socket struct {
	config    Config
	stack     *stack.Stack
	transport *transport.PostMessage
	ready     bool
}

// Compile-time interface check.
var _ stack.Receiver = (*Socket)(nil)

// New builds and initializes a Socket on global. On error every
// element that was created has been destroyed.
func New(global window.Global, config Config) (*Socket, error) {
	queue, err := behavior.NewQueue(behavior.QueueConfig{
		MaxLength:  config.MaxLength,
		MaxPending: config.MaxPending,
		MaxMessage: config.MaxMessage,
		Logger:     config.Logger,
	})
	if err != nil {
		destroyAll(config.Behaviors)
		return nil, err
	}
	postMessage, err := transport.New(global, transport.Config{
		Remote:           config.Remote,
		Channel:          config.Channel,
		IsHost:           config.IsHost,
		Container:        config.Container,
		FrameName:        config.FrameName,
		HandshakeTimeout: config.HandshakeTimeout,
		Logger:           config.Logger,
	})
	if err != nil {
		destroyAll(config.Behaviors)
		return nil, err
	}

	elements := make([]stack.Element, 0, len(config.Behaviors)+2)
	elements = append(elements, queue)
	elements = append(elements, config.Behaviors...)
	elements = append(elements, postMessage)

	socket := &Socket{config: config, transport: postMessage}
	socket.stack, err = stack.New(socket, elements...)
	if err != nil {
		destroyAll(elements)
		return nil, err
	}
	if err := socket.stack.Init(); err != nil {
		socket.stack.Destroy()
		return nil, err
	}
	return socket, nil
}

// PostMessage sends message to the peer. Messages posted before the
// handshake completes are queued.
func (s *Socket) PostMessage(message string) {
	s.stack.Outgoing(message, stack.Meta{})
}

// PostMessageTo sends message with an explicit target origin instead
// of the remote's.
func (s *Socket) PostMessageTo(message, targetOrigin string) {
	s.stack.Outgoing(message, stack.Meta{Domain: targetOrigin})
}

// Ready reports whether the handshake has completed.
func (s *Socket) Ready() bool { return s.ready }

// Channel returns the channel name.
func (s *Socket) Channel() string { return s.config.Channel }

// RemoteOrigin returns the only origin messages are accepted from.
func (s *Socket) RemoteOrigin() string { return s.transport.TargetOrigin() }

// State returns the transport's lifecycle state.
func (s *Socket) State() transport.State { return s.transport.State() }

// Destroy tears down the stack. Safe to call more than once.
func (s *Socket) Destroy() {
	s.stack.Destroy()
	s.ready = false
}

// Incoming implements stack.Receiver.
func (s *Socket) Incoming(message, origin string) {
	if s.config.OnMessage != nil {
		s.config.OnMessage(message, origin)
	}
}

// Callback implements stack.Receiver.
func (s *Socket) Callback(success bool) {
	if !success {
		if s.config.OnFailure != nil {
			s.config.OnFailure()
		}
		return
	}
	s.ready = true
	if s.config.OnReady != nil {
		s.config.OnReady()
	}
}

func destroyAll(elements []stack.Element) {
	for _, element := range elements {
		element.Destroy()
	}
}
