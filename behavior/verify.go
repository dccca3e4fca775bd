// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"encoding/hex"
	"log/slog"

	"github.com/bureau-foundation/xdm/lib/seal"
	"github.com/bureau-foundation/xdm/stack"
)

// tagLength is the length of the hex-encoded tag prefix.
const tagLength = 2 * seal.TagSize

// VerifyConfig configures a Verify behavior.
type VerifyConfig struct {
	// Keys are the channel keys shared by both ends. Borrowed; the
	// caller closes them after the stack is destroyed.
	Keys *seal.ChannelKeys

	// Logger receives rejection diagnostics. Nil discards.
	Logger *slog.Logger
}

// Verify authenticates messages with a keyed tag. Outgoing messages
// are prefixed with the hex tag of their content; inbound messages
// whose tag is missing or wrong are dropped.
type Verify struct {
	passthrough
	keys   *seal.ChannelKeys
	logger *slog.Logger
}

// NewVerify returns a Verify behavior.
func NewVerify(config VerifyConfig) (*Verify, error) {
	if config.Keys == nil {
		return nil, ErrMissingKeys
	}
	return &Verify{keys: config.Keys, logger: loggerOrDiscard(config.Logger)}, nil
}

// Outgoing implements stack.Element.
func (v *Verify) Outgoing(message string, meta stack.Meta) {
	tag := v.keys.Tag([]byte(message))
	v.link.Outgoing(hex.EncodeToString(tag[:])+message, meta)
}

// Incoming implements stack.Receiver.
func (v *Verify) Incoming(message, origin string) {
	if len(message) < tagLength {
		v.logger.Debug("dropping inbound message shorter than its tag", "origin", origin)
		return
	}
	tag, err := hex.DecodeString(message[:tagLength])
	if err != nil {
		v.logger.Debug("dropping inbound message with malformed tag", "origin", origin)
		return
	}
	payload := message[tagLength:]
	if !v.keys.Verify([]byte(payload), tag) {
		v.logger.Debug("dropping inbound message with bad tag", "origin", origin)
		return
	}
	v.link.Incoming(payload, origin)
}
