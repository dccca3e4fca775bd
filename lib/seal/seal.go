// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package seal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/xdm/lib/secret"
)

// TagSize is the length of a message tag in bytes.
const TagSize = 16

// Version is the first byte of every sealed message. It is
// authenticated along with the channel name.
const Version byte = 0x01

// Overhead is the number of bytes Seal adds to a plaintext.
const Overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// HKDF info prefixes. Changing either invalidates every tag or
// ciphertext produced under it.
var (
	infoTag  = []byte("xdm.channel.tag.v1:")
	infoSeal = []byte("xdm.channel.seal.v1:")
)

// ErrOpen is returned by Open for messages that fail authentication.
var ErrOpen = errors.New("seal: message authentication failed")

// ChannelKeys holds the derived keys for one channel.
type ChannelKeys struct {
	channel string
	tag     [secret.KeySize]byte
	seal    [secret.KeySize]byte
}

// Derive returns the keys for channel. master is borrowed, not closed.
func Derive(master *secret.Key, channel string) (*ChannelKeys, error) {
	material, err := master.Bytes()
	if err != nil {
		return nil, err
	}
	keys := &ChannelKeys{channel: channel}
	if err := deriveKey(keys.tag[:], material, infoTag, channel); err != nil {
		return nil, err
	}
	if err := deriveKey(keys.seal[:], material, infoSeal, channel); err != nil {
		return nil, err
	}
	return keys, nil
}

// Channel returns the channel the keys were derived for.
func (k *ChannelKeys) Channel() string { return k.channel }

// Tag returns the keyed BLAKE3 hash of message, truncated to TagSize.
func (k *ChannelKeys) Tag(message []byte) [TagSize]byte {
	hasher, err := blake3.NewKeyed(k.tag[:])
	if err != nil {
		panic("seal: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(message)
	var tag [TagSize]byte
	copy(tag[:], hasher.Sum(nil))
	return tag
}

// Verify reports whether tag authenticates message.
func (k *ChannelKeys) Verify(message, tag []byte) bool {
	expected := k.Tag(message)
	return hmac.Equal(expected[:], tag)
}

// Seal encrypts plaintext:
//
//	[Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag: N+16 bytes]
func (k *ChannelKeys) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(k.seal[:])
	if err != nil {
		return nil, fmt.Errorf("seal: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	output := make([]byte, 1+aead.NonceSize(), len(plaintext)+Overhead)
	output[0] = Version
	nonce := output[1 : 1+aead.NonceSize()]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("seal: generating nonce: %w", err)
	}
	return aead.Seal(output, nonce, plaintext, k.additionalData(Version)), nil
}

// Open decrypts a message produced by Seal on the same channel.
func (k *ChannelKeys) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte overhead", ErrOpen, len(sealed), Overhead)
	}
	if sealed[0] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrOpen, sealed[0])
	}
	aead, err := chacha20poly1305.NewX(k.seal[:])
	if err != nil {
		return nil, fmt.Errorf("seal: creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := sealed[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, sealed[1+aead.NonceSize():], k.additionalData(sealed[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return plaintext, nil
}

// Close zeroes the derived keys.
func (k *ChannelKeys) Close() {
	secret.Zero(k.tag[:])
	secret.Zero(k.seal[:])
}

func (k *ChannelKeys) additionalData(version byte) []byte {
	data := make([]byte, 1+len(k.channel))
	data[0] = version
	copy(data[1:], k.channel)
	return data
}

// deriveKey fills out with HKDF-SHA256 output. The salt is nil: the
// master key is already uniformly random.
func deriveKey(out, master, prefix []byte, channel string) error {
	info := make([]byte, 0, len(prefix)+len(channel))
	info = append(info, prefix...)
	info = append(info, channel...)
	reader := hkdf.New(sha256.New, master, nil, info)
	if _, err := io.ReadFull(reader, out); err != nil {
		secret.Zero(out)
		return fmt.Errorf("seal: HKDF key derivation failed: %w", err)
	}
	return nil
}
