// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ReadKeyFile reads a hex-encoded key from path, or from stdin when
// path is "-". Surrounding whitespace is ignored.
func ReadKeyFile(path string) (*Key, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("secret: reading key: %w", err)
	}
	defer Zero(data)
	return ParseKey(data)
}

// ParseKey decodes a hex-encoded key. encoded is not modified.
func ParseKey(encoded []byte) (*Key, error) {
	trimmed := bytes.TrimSpace(encoded)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: key is empty")
	}
	material := make([]byte, hex.DecodedLen(len(trimmed)))
	if _, err := hex.Decode(material, trimmed); err != nil {
		Zero(material)
		return nil, fmt.Errorf("secret: decoding key: %w", err)
	}
	return NewKey(material)
}
