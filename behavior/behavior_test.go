// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"testing"

	"github.com/bureau-foundation/xdm/stack"
)

// wire is a bottom element that records what reaches it and lets the
// test inject inbound traffic.
type wire struct {
	link  stack.Link
	sent  []string
	metas []stack.Meta
}

func (w *wire) SetLink(link stack.Link) { w.link = link }

func (w *wire) Init() error { return nil }

func (w *wire) Destroy() {}

func (w *wire) Outgoing(message string, meta stack.Meta) {
	w.sent = append(w.sent, message)
	w.metas = append(w.metas, meta)
}

func (w *wire) deliver(message, origin string) { w.link.Incoming(message, origin) }

func (w *wire) ready(success bool) { w.link.Callback(success) }

// app records what reaches the top of a stack.
type app struct {
	received  []string
	origins   []string
	callbacks []bool
}

func (a *app) Incoming(message, origin string) {
	a.received = append(a.received, message)
	a.origins = append(a.origins, origin)
}

func (a *app) Callback(success bool) { a.callbacks = append(a.callbacks, success) }

type endpoint struct {
	stack *stack.Stack
	wire  *wire
	app   *app
}

func newEndpoint(t *testing.T, elements ...stack.Element) *endpoint {
	t.Helper()
	ep := &endpoint{wire: &wire{}, app: &app{}}
	s, err := stack.New(ep.app, append(elements, ep.wire)...)
	if err != nil {
		t.Fatalf("stack.New: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ep.stack = s
	return ep
}

// relay delivers everything on from's wire to the receiving endpoint
// and clears the sender's record.
func relay(from, to *endpoint) {
	sent := from.wire.sent
	from.wire.sent = nil
	from.wire.metas = nil
	for _, message := range sent {
		to.wire.deliver(message, "https://peer.example")
	}
}

func requireStrings(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %q, want %q", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %q, want %q", label, got, want)
		}
	}
}
