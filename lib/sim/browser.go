// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/bureau-foundation/xdm/lib/eventloop"
	"github.com/bureau-foundation/xdm/lib/origin"
	"github.com/bureau-foundation/xdm/lib/window"
)

// ErrDetached is returned when a detached page is asked to create a
// frame.
var ErrDetached = errors.New("sim: page is detached")

// Script is the code a document runs when it loads.
type Script func(page *Page)

// OriginMode selects which origin fields delivered message events
// carry.
type OriginMode int

const (
	// OriginField sets MessageEvent.Origin.
	OriginField OriginMode = iota
	// URIField sets MessageEvent.URI to the sender's document URL.
	URIField
	// DomainField sets MessageEvent.Domain to the sender's host name.
	DomainField
	// NoOriginFields leaves every origin field empty.
	NoOriginFields
)

func (mode OriginMode) String() string {
	switch mode {
	case OriginField:
		return "origin"
	case URIField:
		return "uri"
	case DomainField:
		return "domain"
	case NoOriginFields:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", int(mode))
	}
}

type pageOptions struct {
	originMode    OriginMode
	noPostMessage bool
	loadDelay     time.Duration
}

// PageOption configures a page created by Open, or the frames created
// at a URL registered with Serve.
type PageOption func(*pageOptions)

// WithOriginMode selects the origin fields of events the page receives.
func WithOriginMode(mode OriginMode) PageOption {
	return func(options *pageOptions) { options.originMode = mode }
}

// WithoutPostMessage makes Page.Global return a global that lacks the
// postMessage primitive.
func WithoutPostMessage() PageOption {
	return func(options *pageOptions) { options.noPostMessage = true }
}

// WithLoadDelay fires a frame's load event d after its script has run,
// as when a document is still fetching subresources. Messages the
// script posts can then arrive before the creator sees the load.
func WithLoadDelay(d time.Duration) PageOption {
	return func(options *pageOptions) { options.loadDelay = d }
}

// Browser hosts pages on a single event loop.
type Browser struct {
	loop    *eventloop.Loop
	logger  *slog.Logger
	scripts map[string]Script

	// frameOptions apply to pages created as frames, keyed like
	// scripts.
	frameOptions map[string][]PageOption
}

// NewBrowser creates a browser running on loop. A nil logger discards
// output.
func NewBrowser(loop *eventloop.Loop, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Browser{
		loop:         loop,
		logger:       logger,
		scripts:      make(map[string]Script),
		frameOptions: make(map[string][]PageOption),
	}
}

// Loop returns the browser's event loop.
func (b *Browser) Loop() *eventloop.Loop { return b.loop }

// Serve registers the script run by documents loaded at rawURL. The
// query string and fragment are ignored when matching. Options apply
// to frames created at that URL.
func (b *Browser) Serve(rawURL string, script Script, options ...PageOption) error {
	key, err := documentKey(rawURL)
	if err != nil {
		return err
	}
	b.scripts[key] = script
	b.frameOptions[key] = options
	return nil
}

// Open creates a top-level page at rawURL. Its script, if one is
// served, runs on a later turn.
func (b *Browser) Open(rawURL string, options ...PageOption) (*Page, error) {
	page, err := b.newPage(rawURL, nil, options)
	if err != nil {
		return nil, err
	}
	b.loop.Post(func() { b.load(page) })
	return page, nil
}

func (b *Browser) newPage(rawURL string, parent *Page, options []PageOption) (*Page, error) {
	pageOrigin, err := origin.Of(rawURL)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	page := &Page{
		browser: b,
		url:     rawURL,
		host:    parsed.Hostname(),
		origin:  pageOrigin,
		parent:  parent,
	}
	for _, option := range options {
		option(&page.options)
	}
	return page, nil
}

// load runs the page's script, if any.
func (b *Browser) load(page *Page) {
	if page.detached {
		return
	}
	key, err := documentKey(page.url)
	if err != nil {
		return
	}
	script, ok := b.scripts[key]
	if !ok {
		b.logger.Debug("no script served, loading blank document", "url", page.url)
		return
	}
	b.logger.Debug("running document script", "url", page.url)
	script(page)
}

// deliver posts message from sender to recipient, checked against
// targetOrigin at delivery time.
func (b *Browser) deliver(sender, recipient *Page, message, targetOrigin string) {
	b.loop.Post(func() {
		if recipient.detached {
			b.logger.Debug("dropping message to detached page", "url", recipient.url)
			return
		}
		if targetOrigin != window.TargetOriginAny {
			canonical, err := origin.Of(targetOrigin)
			if err != nil || canonical != recipient.origin {
				b.logger.Debug("dropping message, target origin mismatch",
					"target_origin", targetOrigin, "recipient", recipient.origin)
				return
			}
		}

		event := &window.MessageEvent{
			Data:   message,
			Source: &handle{target: sender, caller: recipient},
		}
		switch recipient.options.originMode {
		case OriginField:
			event.Origin = sender.origin
		case URIField:
			event.URI = sender.url
		case DomainField:
			event.Domain = sender.host
		}

		if err := recipient.events.Dispatch(event); err != nil {
			b.logger.Warn("uncaught error in message listener",
				"url", recipient.url, "error", err)
		}
	})
}

// documentKey identifies a document by origin and path.
func documentKey(rawURL string) (string, error) {
	documentOrigin, err := origin.Of(rawURL)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return documentOrigin + path, nil
}
