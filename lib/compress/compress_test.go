// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"runtime"
	"strings"
	"testing"
)

func textData() []byte {
	return []byte(strings.Repeat(`{"method":"resize","params":{"width":640,"height":480}}`, 40))
}

func randomData(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestAlgorithmString(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		want      string
	}{
		{None, "none"},
		{LZ4, "lz4"},
		{Zstd, "zstd"},
		{Auto, "auto"},
		{Algorithm(1), "unknown(1)"},
	}
	for _, tt := range tests {
		if got := tt.algorithm.String(); got != tt.want {
			t.Errorf("Algorithm(%d).String() = %q, want %q", byte(tt.algorithm), got, tt.want)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd", "auto"} {
		algorithm, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", name, err)
		}
		if algorithm.String() != name {
			t.Errorf("round trip of %q gave %q", name, algorithm)
		}
	}
	if _, err := ParseAlgorithm("gzip"); err == nil {
		t.Error("ParseAlgorithm(gzip) succeeded")
	}
}

func TestRoundTrip(t *testing.T) {
	data := textData()
	for _, algorithm := range []Algorithm{LZ4, Zstd} {
		t.Run(algorithm.String(), func(t *testing.T) {
			compressed, used, err := Compress(data, algorithm)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if used != algorithm {
				t.Fatalf("used %s, want %s", used, algorithm)
			}
			if len(compressed) >= len(data) {
				t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
			}
			decompressed, err := Decompress(compressed, used, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Error("round trip changed the data")
			}
		})
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	data := randomData(t, 1024)
	for _, algorithm := range []Algorithm{LZ4, Zstd, Auto} {
		compressed, used, err := Compress(data, algorithm)
		if err != nil {
			t.Fatalf("Compress(%s): %v", algorithm, err)
		}
		if used != None || !bytes.Equal(compressed, data) {
			t.Errorf("Compress(%s) on random data used %s", algorithm, used)
		}
	}
}

func TestSelect(t *testing.T) {
	if got := Select(textData()); got != Zstd {
		t.Errorf("Select(text) = %s, want zstd", got)
	}
	if got := Select(randomData(t, 4096)); got != None {
		t.Errorf("Select(random) = %s, want none", got)
	}
	if got := Select(nil); got != None {
		t.Errorf("Select(nil) = %s, want none", got)
	}
}

func TestDecompressLimit(t *testing.T) {
	data := textData()
	compressed, used, err := Compress(data, Zstd)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := Decompress(compressed, used, len(data)-1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decompress over limit = %v, want ErrTooLarge", err)
	}
	if _, err := Decompress(data, None, len(data)-1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decompress(None) over limit = %v, want ErrTooLarge", err)
	}
}

func TestDecompressStopsAtDeclaredSize(t *testing.T) {
	// A frame expanding to 64 MiB behind a prefix declaring 10 bytes.
	frame := zstdEncoder.EncodeAll(make([]byte, 64<<20), nil)
	compressed := binary.AppendUvarint(nil, 10)
	compressed = append(compressed, frame...)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := Decompress(compressed, Zstd, 1<<20)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Decompress(understated size) = %v, want ErrCorrupt", err)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 16<<20 {
		t.Errorf("Decompress allocated %d bytes for a 10-byte declared message", allocated)
	}
}

func TestDecompressSmallZstdAtExactLimit(t *testing.T) {
	data := []byte(strings.Repeat("resize 640x480 ", 20))
	compressed, used, err := Compress(data, Zstd)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if used != Zstd {
		t.Fatalf("Compress used %s, want zstd", used)
	}
	decompressed, err := Decompress(compressed, used, len(data))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("round trip mismatch")
	}
}

func TestDecompressCorrupt(t *testing.T) {
	data := textData()
	for _, algorithm := range []Algorithm{LZ4, Zstd} {
		compressed, _, err := Compress(data, algorithm)
		if err != nil {
			t.Fatalf("Compress: %v", err)
		}
		truncated := compressed[:len(compressed)/2]
		if _, err := Decompress(truncated, algorithm, len(data)); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Decompress(%s, truncated) = %v, want ErrCorrupt", algorithm, err)
		}
	}
	if _, err := Decompress(nil, Zstd, 100); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decompress(empty) = %v, want ErrCorrupt", err)
	}
}
