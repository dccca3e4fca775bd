// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"encoding/base64"
	"log/slog"

	"github.com/bureau-foundation/xdm/lib/seal"
	"github.com/bureau-foundation/xdm/stack"
)

// EncryptConfig configures an Encrypt behavior.
type EncryptConfig struct {
	// Keys are the channel keys shared by both ends. Borrowed.
	Keys *seal.ChannelKeys

	// Logger receives rejection diagnostics. Nil discards.
	Logger *slog.Logger
}

// Encrypt seals outgoing messages and opens inbound ones. The wire
// form is the standard base64 encoding of the sealed bytes. Inbound
// messages that do not decode or authenticate are dropped.
type Encrypt struct {
	passthrough
	keys   *seal.ChannelKeys
	logger *slog.Logger
}

// NewEncrypt returns an Encrypt behavior.
func NewEncrypt(config EncryptConfig) (*Encrypt, error) {
	if config.Keys == nil {
		return nil, ErrMissingKeys
	}
	return &Encrypt{keys: config.Keys, logger: loggerOrDiscard(config.Logger)}, nil
}

// Outgoing implements stack.Element.
func (e *Encrypt) Outgoing(message string, meta stack.Meta) {
	sealed, err := e.keys.Seal([]byte(message))
	if err != nil {
		e.logger.Error("sealing outgoing message failed", "error", err)
		return
	}
	e.link.Outgoing(base64.StdEncoding.EncodeToString(sealed), meta)
}

// Incoming implements stack.Receiver.
func (e *Encrypt) Incoming(message, origin string) {
	sealed, err := base64.StdEncoding.DecodeString(message)
	if err != nil {
		e.logger.Debug("dropping inbound message, not base64", "origin", origin)
		return
	}
	plaintext, err := e.keys.Open(sealed)
	if err != nil {
		e.logger.Debug("dropping inbound message", "origin", origin, "error", err)
		return
	}
	e.link.Incoming(string(plaintext), origin)
}
