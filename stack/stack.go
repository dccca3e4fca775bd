// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned by New without elements.
	ErrEmpty = errors.New("stack: no elements")

	// ErrNotReceiver is returned by New when an element above the
	// bottom cannot receive upward traffic.
	ErrNotReceiver = errors.New("stack: element above the bottom does not implement Receiver")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("stack: already initialized")

	// ErrDestroyed is returned by Init after Destroy.
	ErrDestroyed = errors.New("stack: destroyed")
)

// Meta carries per-message delivery options down the stack.
type Meta struct {
	// Domain overrides the transport's target origin for one
	// message. Empty means the configured target origin.
	Domain string
}

// Element is one slot of a stack.
type Element interface {
	// SetLink is called once by New before Init.
	SetLink(link Link)

	// Init starts the element. Called top to bottom by Stack.Init.
	Init() error

	// Destroy releases the element's resources. Must be safe to call
	// before Init and more than once.
	Destroy()

	// Outgoing handles a message travelling toward the wire.
	Outgoing(message string, meta Meta)
}

// Receiver accepts traffic travelling toward the application.
type Receiver interface {
	// Incoming handles one message from origin.
	Incoming(message, origin string)

	// Callback reports the outcome of the transport handshake.
	Callback(success bool)
}

// ReceiverFuncs adapts plain functions to Receiver. Nil fields are
// ignored.
type ReceiverFuncs struct {
	OnIncoming func(message, origin string)
	OnCallback func(success bool)
}

// Incoming implements Receiver.
func (r ReceiverFuncs) Incoming(message, origin string) {
	if r.OnIncoming != nil {
		r.OnIncoming(message, origin)
	}
}

// Callback implements Receiver.
func (r ReceiverFuncs) Callback(success bool) {
	if r.OnCallback != nil {
		r.OnCallback(success)
	}
}

// Stack owns a chain of elements.
type Stack struct {
	app         Receiver
	elements    []Element
	initialized bool
	destroyed   bool
}

// New links elements into a stack delivering upward traffic to app.
// elements[0] is the top; the last element is the bottom. A nil app
// discards upward traffic.
func New(app Receiver, elements ...Element) (*Stack, error) {
	if len(elements) == 0 {
		return nil, ErrEmpty
	}
	for i, element := range elements[:len(elements)-1] {
		if _, ok := element.(Receiver); !ok {
			return nil, fmt.Errorf("%w: index %d (%T)", ErrNotReceiver, i, element)
		}
	}
	if app == nil {
		app = ReceiverFuncs{}
	}

	s := &Stack{
		app:      app,
		elements: append([]Element(nil), elements...),
	}
	for i, element := range s.elements {
		element.SetLink(Link{stack: s, index: i})
	}
	return s, nil
}

// Len returns the number of elements.
func (s *Stack) Len() int { return len(s.elements) }

// Init initializes every element from top to bottom and stops at the
// first failure. The caller should Destroy the stack after a failed
// Init.
func (s *Stack) Init() error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	for i, element := range s.elements {
		if err := element.Init(); err != nil {
			return fmt.Errorf("initializing element %d (%T): %w", i, element, err)
		}
	}
	return nil
}

// Outgoing sends message into the top of the stack. No-op after
// Destroy.
func (s *Stack) Outgoing(message string, meta Meta) {
	if s.destroyed {
		return
	}
	s.elements[0].Outgoing(message, meta)
}

// Destroy destroys every element from top to bottom. Subsequent calls
// do nothing.
func (s *Stack) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, element := range s.elements {
		element.Destroy()
	}
}

// Destroyed reports whether Destroy has been called.
func (s *Stack) Destroyed() bool { return s.destroyed }

// receiverAbove returns the receiver directly above index.
func (s *Stack) receiverAbove(index int) Receiver {
	if index == 0 {
		return s.app
	}
	// New guarantees every non-bottom element is a Receiver.
	return s.elements[index-1].(Receiver)
}

// Link is an element's routing handle into its stack. The zero Link
// discards everything, so an element can be exercised outside a
// stack.
type Link struct {
	stack *Stack
	index int
}

// Outgoing forwards message to the element below. Dropped at the
// bottom of the stack and after Destroy.
func (l Link) Outgoing(message string, meta Meta) {
	if l.stack == nil || l.stack.destroyed {
		return
	}
	below := l.index + 1
	if below >= len(l.stack.elements) {
		return
	}
	l.stack.elements[below].Outgoing(message, meta)
}

// Incoming forwards message to the receiver above.
func (l Link) Incoming(message, origin string) {
	if l.stack == nil || l.stack.destroyed {
		return
	}
	l.stack.receiverAbove(l.index).Incoming(message, origin)
}

// Callback forwards the handshake outcome to the receiver above.
func (l Link) Callback(success bool) {
	if l.stack == nil || l.stack.destroyed {
		return
	}
	l.stack.receiverAbove(l.index).Callback(success)
}

// Index returns the element's position in its stack.
func (l Link) Index() int { return l.index }
