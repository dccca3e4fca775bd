// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress compresses individual messages with zstd or LZ4.
//
// Compressed output carries the uncompressed length as a uvarint
// prefix so decompression can allocate exactly once and refuse
// outputs larger than the caller's limit before decoding. The
// prefix is not trusted: decoding stops as soon as output exceeds it.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression algorithm. Values are wire
// constants: each is the single tag byte written ahead of a message.
type Algorithm byte

const (
	// None sends the message unchanged.
	None Algorithm = 'n'

	// LZ4 is LZ4 block compression. Fast, modest ratio.
	LZ4 Algorithm = 'l'

	// Zstd is zstd at the default level. Better ratio for text.
	Zstd Algorithm = 'z'

	// Auto probes each message and picks Zstd, LZ4, or None. It is
	// never written to the wire.
	Auto Algorithm = 'a'
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", byte(a))
	}
}

// ParseAlgorithm parses an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "auto", "":
		return Auto, nil
	default:
		return 0, fmt.Errorf("compress: unknown algorithm %q", name)
	}
}

var (
	// ErrIncompressible is returned when the compressed form would
	// not be smaller than the input. Callers fall back to None.
	ErrIncompressible = errors.New("compress: data is incompressible")

	// ErrTooLarge is returned by Decompress when the declared size
	// exceeds the caller's limit.
	ErrTooLarge = errors.New("compress: decompressed size exceeds limit")

	// ErrCorrupt is returned for malformed compressed input.
	ErrCorrupt = errors.New("compress: corrupt input")
)

// zstdEncoder is safe for concurrent use and is shared across calls.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with algorithm and returns the algorithm
// actually used. Auto and incompressible input fall back to None, in
// which case data is returned unchanged.
func Compress(data []byte, algorithm Algorithm) ([]byte, Algorithm, error) {
	if algorithm == Auto {
		algorithm = Select(data)
	}
	var body []byte
	var err error
	switch algorithm {
	case None:
		return data, None, nil
	case LZ4:
		body, err = compressLZ4(data)
	case Zstd:
		body, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("compress: unsupported algorithm %s", algorithm)
	}
	if errors.Is(err, ErrIncompressible) {
		return data, None, nil
	}
	if err != nil {
		return nil, 0, err
	}

	output := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(body)), uint64(len(data)))
	return append(output, body...), algorithm, nil
}

// Decompress reverses Compress. Inputs declaring more than limit
// uncompressed bytes are rejected with ErrTooLarge.
func Decompress(compressed []byte, algorithm Algorithm, limit int) ([]byte, error) {
	if algorithm == None {
		if len(compressed) > limit {
			return nil, ErrTooLarge
		}
		return compressed, nil
	}
	size, n := binary.Uvarint(compressed)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad size prefix", ErrCorrupt)
	}
	if size > uint64(limit) {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, limit)
	}
	body := compressed[n:]
	switch algorithm {
	case LZ4:
		return decompressLZ4(body, int(size))
	case Zstd:
		return decompressZstd(body, int(size))
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %s", algorithm)
	}
}

// Select probes data with zstd: ratios of 1.5x or better pick Zstd,
// 1.1x or better pick LZ4, anything else None.
func Select(data []byte) Algorithm {
	if len(data) == 0 {
		return None
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return Zstd
	case ratio >= 1.1:
		return LZ4
	default:
		return None
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, ErrIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
	}
	if read != size {
		return nil, fmt.Errorf("%w: lz4 produced %d bytes, expected %d", ErrCorrupt, read, size)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, ErrIncompressible
	}
	return compressed, nil
}

// decompressZstd streams the frame through a decoder bounded by the
// declared size. Reading stops one byte past size, and the decoder
// refuses windows and frame sizes beyond it.
func decompressZstd(compressed []byte, size int) ([]byte, error) {
	bound := uint64(max(size+1, zstd.MinWindowSize))
	decoder, err := zstd.NewReader(bytes.NewReader(compressed),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(bound),
		zstd.WithDecoderMaxWindow(bound),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	defer decoder.Close()

	result := make([]byte, 0, size)
	buffer := bytes.NewBuffer(result)
	if _, err := buffer.ReadFrom(io.LimitReader(decoder, int64(size)+1)); err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	if buffer.Len() != size {
		return nil, fmt.Errorf("%w: zstd frame does not match declared size %d", ErrCorrupt, size)
	}
	return buffer.Bytes(), nil
}
