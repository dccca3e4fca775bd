// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/event"
	"github.com/bureau-foundation/xdm/lib/origin"
)

// MessageEventName is the event name the native delivery primitive
// dispatches on the receiving Global.
const MessageEventName = "message"

// TargetOriginAny delivers regardless of the recipient's origin.
const TargetOriginAny = "*"

// Window is a non-owning handle to another execution context.
type Window interface {
	// PostMessage delivers message to the context behind this handle
	// on a later turn, provided its origin equals targetOrigin (or
	// targetOrigin is TargetOriginAny). Fire-and-forget: delivery
	// failures are not reported.
	PostMessage(message, targetOrigin string)
}

// Scheduler runs work on the context's single-threaded event loop.
type Scheduler interface {
	// Post runs task on the next turn of the loop.
	Post(task func())

	// AfterFunc runs task on the loop once d has elapsed.
	AfterFunc(d time.Duration, task func()) *clock.Timer
}

// Container names the placement target for a created frame. The empty
// Container places the frame in a hidden default position.
type Container string

// Frame is a child execution context created by its parent.
type Frame interface {
	// Name returns the identifier the frame was created with.
	Name() string

	// URL returns the URL the frame was created at.
	URL() string

	// Detach removes the frame from its container and unloads the
	// child context. Idempotent.
	Detach()
}

// FrameCreator creates child execution contexts.
type FrameCreator interface {
	// CreateFrame creates a child context loading url inside
	// container. When onLoad is non-nil it is called exactly once,
	// on a later turn, with a handle to the child once the child has
	// finished loading. name may be empty.
	CreateFrame(url string, container Container, onLoad func(Window), name string) (Frame, error)
}

// Global is the local execution context: its own event target, event
// loop, location, and parent.
type Global interface {
	event.Target
	Scheduler
	FrameCreator

	// Location returns the URL of the local document.
	Location() string

	// Parent returns a handle to the context that created this one,
	// or nil for a top-level context.
	Parent() Window
}

// MessageEvent is dispatched on a Global when a message posted to it
// is delivered. Which origin fields are populated depends on the
// platform; see origin.Resolve.
type MessageEvent struct {
	// Data is the posted message.
	Data string

	// Origin is the sender's origin.
	Origin string

	// URI is the sender's full document URL (legacy platforms).
	URI string

	// Domain is the sender's host name (oldest platforms).
	Domain string

	// Source is a handle back to the sender, or nil.
	Source Window
}

// Type implements event.Event.
func (e *MessageEvent) Type() string { return MessageEventName }

// OriginSource returns the event's origin fields for origin.Resolve.
func (e *MessageEvent) OriginSource() origin.Source {
	return origin.Source{
		Origin: e.Origin,
		URI:    e.URI,
		Domain: e.Domain,
	}
}
