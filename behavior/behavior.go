// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"errors"
	"log/slog"

	"github.com/bureau-foundation/xdm/stack"
)

// Compile-time interface checks.
var (
	_ stack.Element  = (*Queue)(nil)
	_ stack.Receiver = (*Queue)(nil)
	_ stack.Element  = (*Verify)(nil)
	_ stack.Receiver = (*Verify)(nil)
	_ stack.Element  = (*Encrypt)(nil)
	_ stack.Receiver = (*Encrypt)(nil)
	_ stack.Element  = (*Compress)(nil)
	_ stack.Receiver = (*Compress)(nil)
)

// ErrMissingKeys is returned by constructors of keyed behaviors
// without channel keys.
var ErrMissingKeys = errors.New("behavior: channel keys are required")

// passthrough forwards traffic unchanged in both directions.
type passthrough struct {
	link stack.Link
}

func (p *passthrough) SetLink(link stack.Link) { p.link = link }

func (p *passthrough) Init() error { return nil }

func (p *passthrough) Destroy() {}

func (p *passthrough) Outgoing(message string, meta stack.Meta) {
	p.link.Outgoing(message, meta)
}

func (p *passthrough) Incoming(message, origin string) {
	p.link.Incoming(message, origin)
}

func (p *passthrough) Callback(success bool) {
	p.link.Callback(success)
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
