// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// KeySize is the length of every channel key.
const KeySize = 32

// ErrKeySize is returned for key material that is not KeySize bytes.
var ErrKeySize = fmt.Errorf("secret: key must be %d bytes", KeySize)

// ErrClosed is returned by Bytes after Close.
var ErrClosed = errors.New("secret: key is closed")

// Key is KeySize bytes of locked, unswappable memory. A Key must not
// be copied.
type Key struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewKey copies source into a new Key and zeroes source.
func NewKey(source []byte) (*Key, error) {
	if len(source) != KeySize {
		Zero(source)
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(source))
	}
	data, err := unix.Mmap(-1, 0, KeySize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		Zero(source)
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		Zero(source)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		Zero(source)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}
	copy(data, source)
	Zero(source)
	return &Key{data: data}, nil
}

// Generate returns a Key filled from crypto/rand.
func Generate() (*Key, error) {
	material := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("secret: generating key: %w", err)
	}
	return NewKey(material)
}

// Bytes returns the key material. The slice aliases the locked region
// and must not be retained past Close.
func (k *Key) Bytes() ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, ErrClosed
	}
	return k.data, nil
}

// Close zeroes and releases the key. Idempotent.
func (k *Key) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	Zero(k.data)

	var errs []error
	if err := unix.Munlock(k.data); err != nil {
		errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
	}
	if err := unix.Munmap(k.data); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	k.data = nil
	return errors.Join(errs...)
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	clear(data)
}
