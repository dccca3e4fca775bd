// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package behavior

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/xdm/lib/compress"
	"github.com/bureau-foundation/xdm/stack"
)

// Defaults applied by NewCompress to zero fields.
const (
	DefaultCompressMinSize = 256
	DefaultCompressMaxSize = 1 << 20
)

// CompressConfig configures a Compress behavior.
type CompressConfig struct {
	// Algorithm is the compression applied to large messages. The
	// zero value selects compress.Auto.
	Algorithm compress.Algorithm

	// MinSize is the smallest message, in bytes, that is compressed.
	// Smaller messages are sent with the uncompressed tag.
	MinSize int

	// MaxSize is the largest decompressed inbound message accepted.
	MaxSize int

	// Logger receives drop diagnostics. Nil discards.
	Logger *slog.Logger
}

// Compress compresses outgoing messages and decompresses inbound
// ones. Each wire message starts with one algorithm tag byte. An
// uncompressed body follows its tag as is; a compressed body is base64
// encoded.
type Compress struct {
	passthrough
	config CompressConfig
	logger *slog.Logger
}

// NewCompress returns a Compress behavior.
func NewCompress(config CompressConfig) (*Compress, error) {
	if config.Algorithm == 0 {
		config.Algorithm = compress.Auto
	}
	switch config.Algorithm {
	case compress.Auto, compress.None, compress.LZ4, compress.Zstd:
	default:
		return nil, fmt.Errorf("behavior: unsupported compression algorithm %s", config.Algorithm)
	}
	if config.MinSize == 0 {
		config.MinSize = DefaultCompressMinSize
	}
	if config.MaxSize == 0 {
		config.MaxSize = DefaultCompressMaxSize
	}
	if config.MinSize < 0 || config.MaxSize < 0 {
		return nil, fmt.Errorf("behavior: negative compression size limit")
	}
	return &Compress{config: config, logger: loggerOrDiscard(config.Logger)}, nil
}

// Outgoing implements stack.Element.
func (c *Compress) Outgoing(message string, meta stack.Meta) {
	if len(message) < c.config.MinSize {
		c.link.Outgoing(tagged(compress.None, message), meta)
		return
	}
	body, used, err := compress.Compress([]byte(message), c.config.Algorithm)
	if err != nil {
		c.logger.Error("compressing outgoing message failed", "error", err)
		return
	}
	encoded := base64.StdEncoding.EncodeToString(body)
	if used == compress.None || len(encoded) >= len(message) {
		c.link.Outgoing(tagged(compress.None, message), meta)
		return
	}
	c.link.Outgoing(tagged(used, encoded), meta)
}

// Incoming implements stack.Receiver.
func (c *Compress) Incoming(message, origin string) {
	if message == "" {
		c.logger.Debug("dropping inbound message without compression tag", "origin", origin)
		return
	}
	algorithm, body := compress.Algorithm(message[0]), message[1:]
	switch algorithm {
	case compress.None:
		if len(body) > c.config.MaxSize {
			c.logger.Debug("dropping oversized inbound message", "origin", origin, "size", len(body))
			return
		}
		c.link.Incoming(body, origin)
	case compress.LZ4, compress.Zstd:
		compressed, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			c.logger.Debug("dropping inbound message, not base64", "origin", origin)
			return
		}
		decompressed, err := compress.Decompress(compressed, algorithm, c.config.MaxSize)
		if err != nil {
			c.logger.Debug("dropping inbound message", "origin", origin, "error", err)
			return
		}
		c.link.Incoming(string(decompressed), origin)
	default:
		c.logger.Debug("dropping inbound message with unknown compression tag", "origin", origin, "tag", string(message[0]))
	}
}

// tagged prefixes body with the algorithm's tag byte.
func tagged(algorithm compress.Algorithm, body string) string {
	return string(rune(algorithm)) + body
}
