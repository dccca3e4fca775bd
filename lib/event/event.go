// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"fmt"
)

// Event is a dispatched notification.
type Event interface {
	// Type returns the event name, e.g. "message".
	Type() string
}

// Listener wraps a handler so it can be removed by identity.
type Listener struct {
	handle func(Event) error
}

// NewListener wraps handle. A non-nil error returned by handle aborts
// handling of that event for this listener only; the dispatching
// target reports it and continues with the remaining listeners.
func NewListener(handle func(Event) error) *Listener {
	return &Listener{handle: handle}
}

// Target dispatches named events to registered listeners.
type Target interface {
	AddEventListener(name string, listener *Listener)
	RemoveEventListener(name string, listener *Listener)
}

// Subscribe registers listener for events named name on target.
// Nil targets and listeners are ignored.
func Subscribe(target Target, name string, listener *Listener) {
	if target == nil || listener == nil {
		return
	}
	target.AddEventListener(name, listener)
}

// Unsubscribe removes listener from target. Safe to call for
// listeners that were never registered or were already removed.
func Unsubscribe(target Target, name string, listener *Listener) {
	if target == nil || listener == nil {
		return
	}
	target.RemoveEventListener(name, listener)
}

// Registry holds listeners by event name and dispatches to them. The
// zero value is ready to use. Registry is not safe for concurrent use;
// it belongs to a single event loop.
type Registry struct {
	listeners map[string][]*Listener
}

// AddEventListener registers listener for name. Adding the same
// listener twice has no effect.
func (r *Registry) AddEventListener(name string, listener *Listener) {
	if r.listeners == nil {
		r.listeners = make(map[string][]*Listener)
	}
	for _, existing := range r.listeners[name] {
		if existing == listener {
			return
		}
	}
	r.listeners[name] = append(r.listeners[name], listener)
}

// RemoveEventListener removes listener from name.
func (r *Registry) RemoveEventListener(name string, listener *Listener) {
	current := r.listeners[name]
	for i, existing := range current {
		if existing != listener {
			continue
		}
		// Copy rather than splice in place: a dispatch in progress
		// may be iterating over the old slice.
		updated := make([]*Listener, 0, len(current)-1)
		updated = append(updated, current[:i]...)
		updated = append(updated, current[i+1:]...)
		if len(updated) == 0 {
			delete(r.listeners, name)
		} else {
			r.listeners[name] = updated
		}
		return
	}
}

// Count returns the number of listeners registered for name.
func (r *Registry) Count(name string) int {
	return len(r.listeners[name])
}

// Has reports whether listener is registered for name.
func (r *Registry) Has(name string, listener *Listener) bool {
	for _, existing := range r.listeners[name] {
		if existing == listener {
			return true
		}
	}
	return false
}

// Dispatch delivers event to the listeners registered for its type at
// the moment Dispatch is called. Returns the joined errors of the
// listeners that failed.
func (r *Registry) Dispatch(event Event) error {
	name := event.Type()
	snapshot := r.listeners[name]

	var errs []error
	for _, listener := range snapshot {
		if !r.Has(name, listener) {
			continue
		}
		if err := listener.handle(event); err != nil {
			errs = append(errs, fmt.Errorf("%s listener: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
