// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/event"
	"github.com/bureau-foundation/xdm/lib/origin"
	"github.com/bureau-foundation/xdm/lib/window"
	"github.com/bureau-foundation/xdm/stack"
)

// Compile-time interface check.
var _ stack.Element = (*PostMessage)(nil)

var (
	// ErrPostMessageUnsupported is returned by New when the global
	// context cannot send messages.
	ErrPostMessageUnsupported = errors.New("transport: postMessage is not supported by the platform")

	// ErrInvalidChannel is returned for channel names that cannot
	// serve as a wire prefix.
	ErrInvalidChannel = errors.New("transport: invalid channel")

	// ErrMissingRemote is returned by New without a remote URL.
	ErrMissingRemote = errors.New("transport: remote url is required")

	// ErrNoParent is returned by Init for a guest in a top-level
	// context.
	ErrNoParent = errors.New("transport: guest has no parent context")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("transport: already initialized")

	// ErrDestroyed is returned by Init after Destroy.
	ErrDestroyed = errors.New("transport: destroyed")
)

// Role selects which side of the handshake a transport plays.
type Role int

const (
	// RoleGuest runs inside the frame and announces readiness.
	RoleGuest Role = iota

	// RoleHost creates the frame and waits for the announcement.
	RoleHost
)

// String returns "host" or "guest".
func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "guest"
}

// State is the transport's lifecycle state.
type State int

const (
	// StateUninitialized is the state between New and Init.
	StateUninitialized State = iota

	// StateHandshaking means the host is waiting for the sentinel.
	StateHandshaking

	// StateReady means inbound messages are being delivered.
	StateReady

	// StateFailed means the handshake timed out.
	StateFailed

	// StateDestroyed is terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DropReason says why an inbound message was discarded.
type DropReason int

const (
	// DropOriginMismatch means the sender's origin is not the
	// configured remote origin.
	DropOriginMismatch DropReason = iota

	// DropChannelMismatch means the message does not carry this
	// channel's prefix.
	DropChannelMismatch
)

func (r DropReason) String() string {
	switch r {
	case DropOriginMismatch:
		return "origin-mismatch"
	case DropChannelMismatch:
		return "channel-mismatch"
	default:
		return fmt.Sprintf("DropReason(%d)", int(r))
	}
}

// Drop describes a discarded inbound message.
type Drop struct {
	Reason DropReason

	// Origin is the resolved origin of the sender.
	Origin string

	// Data is the raw message as received.
	Data string
}

// Config configures a PostMessage transport.
type Config struct {
	// Remote is the URL of the other side. For the host it is the
	// document loaded into the frame; for the guest it is the host's
	// origin (FrameQuery.Origin). Only its origin is used for
	// authentication.
	Remote string

	// Channel names this connection. Messages on the wire carry it as
	// a prefix. Must not be empty or contain a space.
	Channel string

	// IsHost selects RoleHost.
	IsHost bool

	// Container is where the host places the frame. Ignored by the
	// guest.
	Container window.Container

	// FrameName is the identifier given to the created frame. May be
	// empty.
	FrameName string

	// HandshakeTimeout bounds how long the host waits for the guest's
	// sentinel. When it elapses the transport detaches the frame,
	// moves to StateFailed and reports Callback(false). Zero waits
	// forever.
	HandshakeTimeout time.Duration

	// Logger receives lifecycle and drop diagnostics. Nil discards.
	Logger *slog.Logger

	// OnDrop, if set, is called for every inbound message that is
	// discarded by origin or channel filtering.
	OnDrop func(Drop)
}

// Role returns the role selected by IsHost.
func (c Config) Role() Role {
	if c.IsHost {
		return RoleHost
	}
	return RoleGuest
}

// Validate checks the static configuration.
func (c Config) Validate() error {
	if c.Remote == "" {
		return ErrMissingRemote
	}
	if err := ValidateChannel(c.Channel); err != nil {
		return err
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("transport: negative handshake timeout %s", c.HandshakeTimeout)
	}
	return nil
}

// PostMessage is a stack element that carries messages over the
// platform's postMessage primitive. Construct with [New].
type PostMessage struct {
	global window.Global
	config Config
	logger *slog.Logger
	link   stack.Link

	state State

	// targetOrigin is the canonical origin of config.Remote: the only
	// origin accepted from, and the default destination for, messages.
	targetOrigin string

	// localScheme is the scheme of the local document, used to
	// reconstruct origins from domain-only events.
	localScheme string

	// callerWindow is the handle messages are sent through: the
	// created frame for the host, the parent for the guest. Nil until
	// the frame has loaded on the host.
	callerWindow window.Window

	frame     window.Frame
	handshake *event.Listener
	inbound   *event.Listener
	timeout   *clock.Timer
}

// New creates a transport on global. The global context must be able
// to send messages itself, which is how platform support for the
// primitive is detected.
func New(global window.Global, config Config) (*PostMessage, error) {
	if _, ok := global.(window.Window); !ok {
		return nil, ErrPostMessageUnsupported
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostMessage{
		global: global,
		config: config,
		logger: logger.With("channel", config.Channel, "role", config.Role().String()),
	}, nil
}

// SetLink implements stack.Element.
func (t *PostMessage) SetLink(link stack.Link) { t.link = link }

// State returns the current lifecycle state.
func (t *PostMessage) State() State { return t.state }

// TargetOrigin returns the canonical remote origin. Empty before Init.
func (t *PostMessage) TargetOrigin() string { return t.targetOrigin }

// Init implements stack.Element. The host subscribes to the sentinel
// and creates the frame; the guest subscribes to messages and
// announces readiness to its parent. In both roles the readiness
// callback arrives on a later turn.
func (t *PostMessage) Init() error {
	switch t.state {
	case StateUninitialized:
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrAlreadyInitialized
	}

	targetOrigin, err := origin.Of(t.config.Remote)
	if err != nil {
		return fmt.Errorf("resolving remote origin: %w", err)
	}
	localScheme, err := origin.Scheme(t.global.Location())
	if err != nil {
		return fmt.Errorf("resolving local scheme: %w", err)
	}
	t.targetOrigin = targetOrigin
	t.localScheme = localScheme
	t.inbound = event.NewListener(t.handleMessage)

	if t.config.IsHost {
		return t.initHost()
	}
	return t.initGuest()
}

func (t *PostMessage) initHost() error {
	localOrigin, err := origin.Of(t.global.Location())
	if err != nil {
		return fmt.Errorf("resolving local origin: %w", err)
	}
	frameURL, err := FrameURL(t.config.Remote, localOrigin, t.config.Channel)
	if err != nil {
		return fmt.Errorf("building frame url: %w", err)
	}

	// Listen before the frame exists so the sentinel cannot race past.
	t.handshake = event.NewListener(t.handleHandshake)
	event.Subscribe(t.global, window.MessageEventName, t.handshake)

	frame, err := t.global.CreateFrame(frameURL, t.config.Container, t.frameLoaded, t.config.FrameName)
	if err != nil {
		event.Unsubscribe(t.global, window.MessageEventName, t.handshake)
		t.handshake = nil
		return fmt.Errorf("creating frame: %w", err)
	}
	t.frame = frame
	t.state = StateHandshaking

	if t.config.HandshakeTimeout > 0 {
		t.timeout = t.global.AfterFunc(t.config.HandshakeTimeout, t.handshakeExpired)
	}
	t.logger.Debug("waiting for guest", "frame_url", frameURL)
	return nil
}

func (t *PostMessage) initGuest() error {
	parent := t.global.Parent()
	if parent == nil {
		return ErrNoParent
	}
	event.Subscribe(t.global, window.MessageEventName, t.inbound)
	t.callerWindow = parent
	t.state = StateReady

	parent.PostMessage(ReadySentinel(t.config.Channel), t.targetOrigin)
	t.logger.Debug("announced readiness", "target_origin", t.targetOrigin)
	t.global.Post(t.reportReady)
	return nil
}

// frameLoaded records the handle to the host's frame once it loads.
func (t *PostMessage) frameLoaded(child window.Window) {
	if t.state != StateHandshaking && t.state != StateReady {
		return
	}
	t.callerWindow = child
}

// handleHandshake is the host's transient listener. It matches only
// the sentinel and removes itself on the first match.
func (t *PostMessage) handleHandshake(e event.Event) error {
	message, ok := e.(*window.MessageEvent)
	if !ok || message.Data != ReadySentinel(t.config.Channel) {
		return nil
	}
	if t.state != StateHandshaking {
		return nil
	}

	event.Unsubscribe(t.global, window.MessageEventName, t.handshake)
	t.handshake = nil
	if t.timeout != nil {
		t.timeout.Stop()
		t.timeout = nil
	}
	event.Subscribe(t.global, window.MessageEventName, t.inbound)
	// The sentinel can beat the frame's load event. Until the load
	// arrives, reply through the sentinel's sender.
	if t.callerWindow == nil && message.Source != nil {
		t.callerWindow = message.Source
	}
	t.state = StateReady
	t.logger.Debug("guest ready")
	t.global.Post(t.reportReady)
	return nil
}

// reportReady runs on the turn after the transport became ready.
func (t *PostMessage) reportReady() {
	if t.state == StateDestroyed {
		return
	}
	t.link.Callback(true)
}

func (t *PostMessage) handshakeExpired() {
	if t.state != StateHandshaking {
		return
	}
	event.Unsubscribe(t.global, window.MessageEventName, t.handshake)
	t.handshake = nil
	t.timeout = nil
	if t.frame != nil {
		t.frame.Detach()
		t.frame = nil
	}
	t.callerWindow = nil
	t.state = StateFailed
	t.logger.Warn("handshake timed out", "timeout", t.config.HandshakeTimeout)
	t.link.Callback(false)
}

// handleMessage is the permanent listener. It authenticates the
// sender's origin, strips the channel prefix, and passes the payload
// up the stack.
func (t *PostMessage) handleMessage(e event.Event) error {
	if t.state != StateReady {
		return nil
	}
	message, ok := e.(*window.MessageEvent)
	if !ok {
		return nil
	}
	sender, err := origin.Resolve(message.OriginSource(), t.localScheme)
	if err != nil {
		return fmt.Errorf("transport channel %q: %w", t.config.Channel, err)
	}
	if sender != t.targetOrigin {
		t.drop(DropOriginMismatch, sender, message.Data)
		return nil
	}
	payload, ok := Unframe(t.config.Channel, message.Data)
	if !ok {
		t.drop(DropChannelMismatch, sender, message.Data)
		return nil
	}
	t.link.Incoming(payload, sender)
	return nil
}

func (t *PostMessage) drop(reason DropReason, sender, data string) {
	t.logger.Debug("dropping inbound message", "reason", reason.String(), "origin", sender)
	if t.config.OnDrop != nil {
		t.config.OnDrop(Drop{Reason: reason, Origin: sender, Data: data})
	}
}

// Outgoing implements stack.Element. The message is framed with the
// channel name and sent to meta.Domain, or to the remote origin when
// meta.Domain is empty. Messages sent outside StateReady, or before
// the peer handle exists, are discarded.
func (t *PostMessage) Outgoing(message string, meta stack.Meta) {
	if t.state != StateReady || t.callerWindow == nil {
		t.logger.Debug("discarding outgoing message, no peer", "state", t.state.String())
		return
	}
	targetOrigin := meta.Domain
	if targetOrigin == "" {
		targetOrigin = t.targetOrigin
	}
	t.callerWindow.PostMessage(Frame(t.config.Channel, message), targetOrigin)
}

// Destroy implements stack.Element. It removes every listener the
// transport registered, cancels the handshake timeout, and detaches
// the host's frame. Safe before Init and more than once.
func (t *PostMessage) Destroy() {
	if t.state == StateDestroyed {
		return
	}
	event.Unsubscribe(t.global, window.MessageEventName, t.handshake)
	event.Unsubscribe(t.global, window.MessageEventName, t.inbound)
	t.handshake = nil
	t.inbound = nil
	if t.timeout != nil {
		t.timeout.Stop()
		t.timeout = nil
	}
	if t.frame != nil {
		t.frame.Detach()
		t.frame = nil
	}
	t.callerWindow = nil
	t.state = StateDestroyed
	t.logger.Debug("destroyed")
}
