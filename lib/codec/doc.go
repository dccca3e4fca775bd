// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for RPC envelopes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// The same logical value always produces identical bytes.
//
// Channels carry text, so [EncodeText] and [DecodeText] wrap the
// binary form in standard base64:
//
//	text, err := codec.EncodeText(envelope)
//	err = codec.DecodeText(text, &envelope)
//
// Envelope types use `cbor` struct tags with short keys; fields tagged
// "-" stay local. Decoding ignores unknown keys, and generic values
// decode to map[string]any.
package codec
