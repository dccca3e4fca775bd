// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the Core Deterministic encoder.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields, so peers
// can add envelope fields without breaking older ones.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// RPC params decoded into any must come out as
		// map[string]any rather than map[any]any so handlers can
		// pass them to encoding/json.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Bound what a hostile peer can make us allocate.
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 16,
		MaxNestedLevels:  32,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// RawMessage is an encoded CBOR value whose decoding is deferred.
type RawMessage = cbor.RawMessage

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeText encodes v as base64 CBOR.
func EncodeText(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeText decodes base64 CBOR produced by EncodeText into v.
func DecodeText(text string, v any) error {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return fmt.Errorf("codec: decoding base64: %w", err)
	}
	return Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. Used for Debug logging of envelopes.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
