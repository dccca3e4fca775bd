// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"net/url"
	"time"

	"github.com/bureau-foundation/xdm/lib/clock"
	"github.com/bureau-foundation/xdm/lib/event"
	"github.com/bureau-foundation/xdm/lib/window"
)

// Compile-time interface checks.
var (
	_ window.Global = (*Page)(nil)
	_ window.Window = (*Page)(nil)
	_ window.Window = (*handle)(nil)
	_ window.Frame  = (*frame)(nil)
	_ window.Global = restrictedGlobal{}
)

// Page is one execution context. All methods must be called on the
// browser's event loop, or before the loop starts running.
type Page struct {
	browser  *Browser
	url      string
	host     string
	origin   string
	parent   *Page
	options  pageOptions
	events   event.Registry
	frames   []*frame
	detached bool
}

// Location returns the page's URL.
func (p *Page) Location() string { return p.url }

// Origin returns the page's canonical origin.
func (p *Page) Origin() string { return p.origin }

// Query returns the parsed query parameters of the page's URL.
func (p *Page) Query() url.Values {
	parsed, err := url.Parse(p.url)
	if err != nil {
		return url.Values{}
	}
	return parsed.Query()
}

// Parent returns a handle to the creating page, or nil at top level.
func (p *Page) Parent() window.Window {
	if p.parent == nil {
		return nil
	}
	return &handle{target: p.parent, caller: p}
}

// Detached reports whether the page's frame has been detached.
func (p *Page) Detached() bool { return p.detached }

// Global returns the page as a window.Global. Pages opened with
// WithoutPostMessage return a global that does not implement
// window.Window.
func (p *Page) Global() window.Global {
	if p.options.noPostMessage {
		return restrictedGlobal{page: p}
	}
	return p
}

// AddEventListener implements event.Target.
func (p *Page) AddEventListener(name string, listener *event.Listener) {
	p.events.AddEventListener(name, listener)
}

// RemoveEventListener implements event.Target.
func (p *Page) RemoveEventListener(name string, listener *event.Listener) {
	p.events.RemoveEventListener(name, listener)
}

// ListenerCount returns the number of listeners registered for name.
func (p *Page) ListenerCount(name string) int { return p.events.Count(name) }

// Post implements window.Scheduler. Tasks of a detached page are
// discarded.
func (p *Page) Post(task func()) {
	p.browser.loop.Post(func() {
		if !p.detached {
			task()
		}
	})
}

// AfterFunc implements window.Scheduler.
func (p *Page) AfterFunc(d time.Duration, task func()) *clock.Timer {
	return p.browser.loop.AfterFunc(d, func() {
		if !p.detached {
			task()
		}
	})
}

// PostMessage posts message to this page from itself.
func (p *Page) PostMessage(message, targetOrigin string) {
	p.browser.deliver(p, p, message, targetOrigin)
}

// CreateFrame implements window.FrameCreator. The child's script runs
// on a later turn, then onLoad receives a handle whose messages are
// sent from this page.
func (p *Page) CreateFrame(rawURL string, container window.Container, onLoad func(window.Window), name string) (window.Frame, error) {
	if p.detached {
		return nil, ErrDetached
	}
	var options []PageOption
	if key, err := documentKey(rawURL); err == nil {
		options = p.browser.frameOptions[key]
	}
	child, err := p.browser.newPage(rawURL, p, options)
	if err != nil {
		return nil, err
	}

	created := &frame{
		name:      name,
		url:       rawURL,
		container: container,
		parent:    p,
		child:     child,
	}
	p.frames = append(p.frames, created)
	p.browser.logger.Debug("creating frame", "url", rawURL, "container", string(container), "name", name)

	p.browser.loop.Post(func() {
		if child.detached {
			return
		}
		p.browser.load(child)
		if onLoad == nil {
			return
		}
		loaded := func() {
			if !child.detached {
				onLoad(&handle{target: child, caller: p})
			}
		}
		if child.options.loadDelay > 0 {
			p.browser.loop.AfterFunc(child.options.loadDelay, loaded)
			return
		}
		loaded()
	})
	return created, nil
}

// Frames returns the frames currently attached to the page.
func (p *Page) Frames() []window.Frame {
	frames := make([]window.Frame, len(p.frames))
	for i, f := range p.frames {
		frames[i] = f
	}
	return frames
}

// FramePage returns the page loaded in the page's i-th attached frame.
func (p *Page) FramePage(i int) *Page {
	if i < 0 || i >= len(p.frames) {
		return nil
	}
	return p.frames[i].child
}

func (p *Page) detach() {
	p.detached = true
	for _, child := range p.frames {
		child.child.detach()
	}
	p.frames = nil
}

// handle is a Window seen from caller: messages posted through it are
// sent by caller.
type handle struct {
	target *Page
	caller *Page
}

func (h *handle) PostMessage(message, targetOrigin string) {
	h.caller.browser.deliver(h.caller, h.target, message, targetOrigin)
}

type frame struct {
	name      string
	url       string
	container window.Container
	parent    *Page
	child     *Page
}

func (f *frame) Name() string { return f.name }

func (f *frame) URL() string { return f.url }

// Container returns the frame's placement target.
func (f *frame) Container() window.Container { return f.container }

func (f *frame) Detach() {
	if f.child.detached {
		return
	}
	f.child.detach()
	siblings := f.parent.frames
	for i, sibling := range siblings {
		if sibling == f {
			f.parent.frames = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	f.parent.browser.logger.Debug("detached frame", "url", f.url)
}

// restrictedGlobal exposes a page without the postMessage primitive.
type restrictedGlobal struct {
	page *Page
}

func (g restrictedGlobal) AddEventListener(name string, listener *event.Listener) {
	g.page.AddEventListener(name, listener)
}

func (g restrictedGlobal) RemoveEventListener(name string, listener *event.Listener) {
	g.page.RemoveEventListener(name, listener)
}

func (g restrictedGlobal) Post(task func()) { g.page.Post(task) }

func (g restrictedGlobal) AfterFunc(d time.Duration, task func()) *clock.Timer {
	return g.page.AfterFunc(d, task)
}

func (g restrictedGlobal) CreateFrame(rawURL string, container window.Container, onLoad func(window.Window), name string) (window.Frame, error) {
	return g.page.CreateFrame(rawURL, container, onLoad, name)
}

func (g restrictedGlobal) Location() string { return g.page.Location() }

func (g restrictedGlobal) Parent() window.Window { return g.page.Parent() }
