// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/codec"
	"github.com/bureau-foundation/xdm/lib/eventloop"
	"github.com/bureau-foundation/xdm/lib/sim"
	"github.com/bureau-foundation/xdm/socket"
)

const (
	hostURL  = "https://a.example/app"
	guestURL = "https://b.example/calc"
	blankURL = "https://b.example/blank"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type addParams struct {
	A int `cbor:"a"`
	B int `cbor:"b"`
}

type outcome struct {
	data codec.RawMessage
	err  error
}

type fixture struct {
	clock    *clock.FakeClock
	loop     *eventloop.Loop
	browser  *sim.Browser
	hostPage *sim.Page

	guest     *Endpoint
	notified  []string
	guestCall []outcome
}

// newFixture serves a calculator guest at guestURL.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := clock.Fake(epoch)
	loop := eventloop.New(fake)
	f := &fixture{clock: fake, loop: loop, browser: sim.NewBrowser(loop, nil)}

	err := f.browser.Serve(guestURL, func(page *sim.Page) {
		socketConfig, err := socket.GuestConfig(page.Location())
		if err != nil {
			t.Errorf("GuestConfig: %v", err)
			return
		}
		socketConfig.OnReady = func() {
			// Calls back into the host once connected.
			if err := f.guest.Call("whoami", nil, func(data codec.RawMessage, err error) {
				f.guestCall = append(f.guestCall, outcome{data, err})
			}); err != nil {
				t.Errorf("guest Call: %v", err)
			}
		}
		f.guest, err = New(page.Global(), Config{Socket: socketConfig})
		if err != nil {
			t.Errorf("guest New: %v", err)
			return
		}
		f.guest.Handle("add", func(params codec.RawMessage) (any, error) {
			var p addParams
			if err := Decode(params, &p); err != nil {
				return nil, ErrInvalidParams
			}
			return p.A + p.B, nil
		})
		f.guest.Handle("fail", func(codec.RawMessage) (any, error) {
			return nil, errors.New("boom")
		})
		f.guest.Handle("teapot", func(codec.RawMessage) (any, error) {
			return nil, &RemoteError{Code: 418, Message: "short and stout"}
		})
		f.guest.Handle("noop", func(codec.RawMessage) (any, error) {
			return nil, nil
		})
		f.guest.Handle("log", func(params codec.RawMessage) (any, error) {
			var line string
			if err := Decode(params, &line); err != nil {
				return nil, err
			}
			f.notified = append(f.notified, line)
			return nil, nil
		})
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	f.hostPage, err = f.browser.Open(hostURL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return f
}

func (f *fixture) host(t *testing.T, remote string, timeout time.Duration) *Endpoint {
	t.Helper()
	host, err := New(f.hostPage.Global(), Config{
		Socket:      socket.Config{Remote: remote, Channel: "calc", IsHost: true},
		CallTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host.Handle("whoami", func(codec.RawMessage) (any, error) { return "host", nil })
	return host
}

func call(t *testing.T, endpoint *Endpoint, method string, params any) *outcome {
	t.Helper()
	result := &outcome{}
	var calls int
	err := endpoint.Call(method, params, func(data codec.RawMessage, err error) {
		calls++
		if calls > 1 {
			t.Errorf("done called %d times for %q", calls, method)
		}
		result.data, result.err = data, err
	})
	if err != nil {
		t.Fatalf("Call(%q): %v", method, err)
	}
	return result
}

func TestCallReturnsResult(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)

	sum := call(t, host, "add", addParams{A: 2, B: 3})
	f.loop.RunUntilIdle()

	if sum.err != nil {
		t.Fatalf("add: %v", sum.err)
	}
	var got int
	if err := Decode(sum.data, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != 5 {
		t.Errorf("add = %d, want 5", got)
	}
	if host.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", host.Pending())
	}
}

func TestCallErrors(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)

	missing := call(t, host, "missing", nil)
	failing := call(t, host, "fail", nil)
	teapot := call(t, host, "teapot", nil)
	badParams := call(t, host, "add", "not a struct")
	noop := call(t, host, "noop", nil)
	f.loop.RunUntilIdle()

	if !errors.Is(missing.err, ErrMethodNotFound) {
		t.Errorf("missing: %v, want ErrMethodNotFound", missing.err)
	}

	var remote *RemoteError
	if !errors.As(failing.err, &remote) || remote.Code != CodeHandler || remote.Message != "boom" || remote.Method != "fail" {
		t.Errorf("fail: %#v", failing.err)
	}
	if !errors.As(teapot.err, &remote) || remote.Code != 418 {
		t.Errorf("teapot: %#v", teapot.err)
	}
	if !errors.Is(badParams.err, ErrInvalidParams) {
		t.Errorf("add with bad params: %v, want ErrInvalidParams", badParams.err)
	}
	if noop.err != nil || len(noop.data) != 0 {
		t.Errorf("noop = %v, %v; want no data and no error", noop.data, noop.err)
	}
}

func TestNotify(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)

	for _, line := range []string{"first", "second"} {
		if err := host.Notify("log", line); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	if err := host.Notify("unregistered", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	f.loop.RunUntilIdle()

	if len(f.notified) != 2 || f.notified[0] != "first" || f.notified[1] != "second" {
		t.Errorf("notified = %q", f.notified)
	}
}

func TestGuestCallsHost(t *testing.T) {
	f := newFixture(t)
	f.host(t, guestURL, 0)
	f.loop.RunUntilIdle()

	if len(f.guestCall) != 1 || f.guestCall[0].err != nil {
		t.Fatalf("guest calls = %+v", f.guestCall)
	}
	var name string
	if err := Decode(f.guestCall[0].data, &name); err != nil || name != "host" {
		t.Errorf("whoami = %q, %v", name, err)
	}
}

func TestCallTimeout(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, blankURL, 2*time.Second)

	result := call(t, host, "add", addParams{A: 1, B: 1})
	f.loop.RunUntilIdle()
	f.clock.Advance(2 * time.Second)
	f.loop.RunUntilIdle()

	if !errors.Is(result.err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", result.err)
	}
	if host.Pending() != 0 {
		t.Errorf("Pending = %d after timeout", host.Pending())
	}
}

func TestResponseCancelsTimeout(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 2*time.Second)

	result := call(t, host, "add", addParams{A: 1, B: 1})
	f.loop.RunUntilIdle()
	f.clock.Advance(time.Minute)
	f.loop.RunUntilIdle()

	if result.err != nil {
		t.Fatalf("err = %v, want success", result.err)
	}
}

func TestDestroyCompletesPendingCalls(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, blankURL, 0)

	first := call(t, host, "add", nil)
	second := call(t, host, "add", nil)
	var order []*outcome
	host.pending[1].done = func(data codec.RawMessage, err error) {
		first.err = err
		order = append(order, first)
	}
	host.pending[2].done = func(data codec.RawMessage, err error) {
		second.err = err
		order = append(order, second)
	}

	host.Destroy()
	host.Destroy()

	if !errors.Is(first.err, ErrDestroyed) || !errors.Is(second.err, ErrDestroyed) {
		t.Fatalf("errors = %v, %v; want ErrDestroyed", first.err, second.err)
	}
	if len(order) != 2 || order[0] != first || order[1] != second {
		t.Error("pending calls not completed in call order")
	}
	if err := host.Call("add", nil, func(codec.RawMessage, error) {}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Call after Destroy = %v, want ErrDestroyed", err)
	}
	if err := host.Notify("log", "x"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Notify after Destroy = %v, want ErrDestroyed", err)
	}
	f.loop.RunUntilIdle()
}

func TestUndecodableMessagesDropped(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)
	f.loop.RunUntilIdle()

	f.guest.Socket().PostMessage("not an envelope")
	f.guest.Socket().PostMessage("//8=")
	unknown, err := codec.EncodeText(envelope{ID: 99, OK: true})
	if err != nil {
		t.Fatal(err)
	}
	f.guest.Socket().PostMessage(unknown)
	f.loop.RunUntilIdle()

	result := call(t, host, "add", addParams{A: 20, B: 22})
	f.loop.RunUntilIdle()
	var got int
	if err := Decode(result.data, &got); err != nil || got != 42 {
		t.Errorf("add after garbage = %d, %v", got, err)
	}
}

func TestCallValidation(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)

	if err := host.Call("", nil, func(codec.RawMessage, error) {}); err == nil {
		t.Error("empty method accepted")
	}
	if err := host.Call("add", nil, nil); err == nil {
		t.Error("nil done accepted")
	}
	if err := host.Call("add", make(chan int), func(codec.RawMessage, error) {}); err == nil {
		t.Error("unencodable params accepted")
	}
	if host.Pending() != 0 {
		t.Errorf("Pending = %d after rejected calls", host.Pending())
	}
}

func TestHandlePanicsOnDuplicate(t *testing.T) {
	f := newFixture(t)
	host := f.host(t, guestURL, 0)
	defer func() {
		if recover() == nil {
			t.Error("duplicate Handle did not panic")
		}
	}()
	host.Handle("whoami", func(codec.RawMessage) (any, error) { return nil, nil })
}

func TestRemoteErrorIs(t *testing.T) {
	err := &RemoteError{Code: CodeMethodNotFound, Message: "x"}
	if !errors.Is(err, ErrMethodNotFound) || errors.Is(err, ErrInvalidParams) {
		t.Errorf("errors.Is mismatch for %v", err)
	}
	wrapped := toRemoteError(errors.New("plain"))
	if wrapped.Code != CodeHandler {
		t.Errorf("plain error code = %d, want %d", wrapped.Code, CodeHandler)
	}
}
