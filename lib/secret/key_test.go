// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testMaterial() []byte {
	material := make([]byte, KeySize)
	for i := range material {
		material[i] = byte(i + 1)
	}
	return material
}

func TestNewKeyZeroesSource(t *testing.T) {
	source := testMaterial()
	key, err := NewKey(source)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	defer key.Close()

	if !bytes.Equal(source, make([]byte, KeySize)) {
		t.Error("source was not zeroed")
	}
	data, err := key.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(data, testMaterial()) {
		t.Errorf("Bytes = %x, want %x", data, testMaterial())
	}
}

func TestNewKeyRejectsWrongSize(t *testing.T) {
	for _, size := range []int{0, 16, 33} {
		if _, err := NewKey(make([]byte, size)); !errors.Is(err, ErrKeySize) {
			t.Errorf("NewKey(%d bytes) = %v, want ErrKeySize", size, err)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := key.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := key.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := key.Bytes(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Bytes after Close = %v, want ErrClosed", err)
	}
}

func TestGenerateProducesDistinctKeys(t *testing.T) {
	first, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer first.Close()
	second, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer second.Close()

	a, _ := first.Bytes()
	b, _ := second.Bytes()
	if bytes.Equal(a, b) {
		t.Error("two generated keys are equal")
	}
}

func TestReadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channel.key")
	if err := os.WriteFile(path, []byte("  "+hex.EncodeToString(testMaterial())+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile: %v", err)
	}
	defer key.Close()
	data, _ := key.Bytes()
	if !bytes.Equal(data, testMaterial()) {
		t.Errorf("key = %x, want %x", data, testMaterial())
	}
}

func TestParseKeyErrors(t *testing.T) {
	tests := map[string]string{
		"empty":     "   \n",
		"not hex":   "zz" + hex.EncodeToString(testMaterial())[2:],
		"too short": hex.EncodeToString(testMaterial()[:16]),
	}
	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseKey([]byte(encoded)); err == nil {
				t.Fatal("ParseKey succeeded")
			}
		})
	}
}
