// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/xdm/stack"
)

// Fragment markers prefixed to every message when chunking is on.
const (
	markerMore  = '+'
	markerFinal = '.'
)

// DefaultQueueMaxMessage is the reassembly limit used when
// QueueConfig.MaxMessage is zero.
const DefaultQueueMaxMessage = 1 << 20

// ErrMaxLength is returned by NewQueue for a MaxLength that cannot
// hold a full UTF-8 sequence.
var ErrMaxLength = errors.New("behavior: invalid queue max length")

// QueueConfig configures a Queue.
type QueueConfig struct {
	// MaxLength is the largest payload, in bytes, passed to the
	// element below in one message. Longer messages are split into
	// fragments and reassembled by the peer's Queue, which must use
	// chunking too. Zero disables chunking and markers.
	MaxLength int

	// MaxPending bounds the number of messages held before the
	// transport is ready. Further messages are dropped. Zero is
	// unbounded.
	MaxPending int

	// MaxMessage is the largest inbound message, in bytes, that
	// fragments may reassemble into. A message growing past it is
	// discarded along with the rest of its fragments. Zero means
	// DefaultQueueMaxMessage.
	MaxMessage int

	// Logger receives drop diagnostics. Nil discards.
	Logger *slog.Logger
}

type pendingMessage struct {
	message string
	meta    stack.Meta
}

// Queue buffers outgoing messages until the element below reports
// Callback(true), then sends them in order. Messages sent after a
// failed handshake are discarded.
type Queue struct {
	passthrough
	config QueueConfig
	logger *slog.Logger

	ready     bool
	failed    bool
	destroyed bool
	pending   []pendingMessage

	// partial accumulates fragments of the inbound message in
	// progress. oversized is set once it passes MaxMessage, and the
	// remaining fragments of that message are skipped.
	partial   strings.Builder
	oversized bool
}

// NewQueue returns a Queue.
func NewQueue(config QueueConfig) (*Queue, error) {
	if config.MaxLength < 0 || (config.MaxLength > 0 && config.MaxLength < utf8.UTFMax) {
		return nil, fmt.Errorf("%w: %d", ErrMaxLength, config.MaxLength)
	}
	if config.MaxPending < 0 {
		return nil, fmt.Errorf("behavior: negative queue max pending %d", config.MaxPending)
	}
	if config.MaxMessage == 0 {
		config.MaxMessage = DefaultQueueMaxMessage
	}
	if config.MaxMessage < 0 {
		return nil, fmt.Errorf("behavior: negative queue max message %d", config.MaxMessage)
	}
	return &Queue{config: config, logger: loggerOrDiscard(config.Logger)}, nil
}

// Pending returns the number of messages waiting for readiness.
func (q *Queue) Pending() int { return len(q.pending) }

// Outgoing implements stack.Element.
func (q *Queue) Outgoing(message string, meta stack.Meta) {
	switch {
	case q.destroyed || q.failed:
		q.logger.Debug("discarding outgoing message, channel not usable")
	case q.ready:
		q.send(message, meta)
	case q.config.MaxPending > 0 && len(q.pending) >= q.config.MaxPending:
		q.logger.Warn("outgoing queue full, dropping message", "max_pending", q.config.MaxPending)
	default:
		q.pending = append(q.pending, pendingMessage{message: message, meta: meta})
	}
}

// Callback implements stack.Receiver. On success the queue is flushed
// before the callback continues upward.
func (q *Queue) Callback(success bool) {
	if q.destroyed {
		return
	}
	if success {
		q.ready = true
		pending := q.pending
		q.pending = nil
		for _, p := range pending {
			q.send(p.message, p.meta)
		}
	} else {
		q.failed = true
		if len(q.pending) > 0 {
			q.logger.Warn("handshake failed, discarding queued messages", "count", len(q.pending))
		}
		q.pending = nil
	}
	q.link.Callback(success)
}

// Incoming implements stack.Receiver.
func (q *Queue) Incoming(message, origin string) {
	if q.config.MaxLength == 0 {
		q.link.Incoming(message, origin)
		return
	}
	if message == "" {
		q.logger.Debug("dropping inbound message without fragment marker")
		return
	}
	marker, fragment := message[0], message[1:]
	if marker != markerMore && marker != markerFinal {
		q.logger.Debug("dropping inbound message with unknown fragment marker", "marker", string(marker))
		return
	}
	if !q.oversized && q.partial.Len()+len(fragment) > q.config.MaxMessage {
		q.logger.Debug("dropping oversized inbound message",
			"origin", origin, "max_message", q.config.MaxMessage)
		q.partial.Reset()
		q.oversized = true
	}
	if q.oversized {
		if marker == markerFinal {
			q.oversized = false
		}
		return
	}
	q.partial.WriteString(fragment)
	if marker == markerFinal {
		whole := q.partial.String()
		q.partial.Reset()
		q.link.Incoming(whole, origin)
	}
}

// Destroy implements stack.Element.
func (q *Queue) Destroy() {
	q.destroyed = true
	q.pending = nil
	q.partial.Reset()
	q.oversized = false
}

func (q *Queue) send(message string, meta stack.Meta) {
	if q.config.MaxLength == 0 {
		q.link.Outgoing(message, meta)
		return
	}
	parts := splitFragments(message, q.config.MaxLength)
	for i, part := range parts {
		marker := markerMore
		if i == len(parts)-1 {
			marker = markerFinal
		}
		q.link.Outgoing(string(marker)+part, meta)
	}
}

// splitFragments cuts message into pieces of at most maxLength bytes
// without splitting a UTF-8 sequence. Always returns at least one
// piece.
func splitFragments(message string, maxLength int) []string {
	var parts []string
	for len(message) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLength
		}
		parts = append(parts, message[:cut])
		message = message[cut:]
	}
	return append(parts, message)
}
