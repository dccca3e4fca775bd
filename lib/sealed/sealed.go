// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/xdm/lib/secret"
)

// ErrNoRecipients is returned by Wrap without recipients.
var ErrNoRecipients = errors.New("sealed: at least one recipient is required")

// Identity is an x25519 keypair in age's text form.
type Identity struct {
	// Secret is the AGE-SECRET-KEY-1... line. It must never be logged
	// or passed on a command line.
	Secret string

	// Recipient is the corresponding age1... public key. Safe to
	// publish.
	Recipient string
}

// GenerateIdentity generates a new x25519 identity.
func GenerateIdentity() (Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Identity{}, fmt.Errorf("sealed: generating identity: %w", err)
	}
	return Identity{
		Secret:    identity.String(),
		Recipient: identity.Recipient().String(),
	}, nil
}

// ParseRecipient validates an age x25519 public key.
func ParseRecipient(recipient string) error {
	if _, err := age.ParseX25519Recipient(recipient); err != nil {
		return fmt.Errorf("sealed: invalid recipient %q: %w", recipient, err)
	}
	return nil
}

// Wrap encrypts key to every recipient and returns the armored result.
// key stays open.
func Wrap(key *secret.Key, recipients []string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	parsed := make([]age.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		x25519, err := age.ParseX25519Recipient(recipient)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing recipient %q: %w", recipient, err)
		}
		parsed = append(parsed, x25519)
	}
	material, err := key.Bytes()
	if err != nil {
		return nil, err
	}

	var wrapped bytes.Buffer
	armored := armor.NewWriter(&wrapped)
	writer, err := age.Encrypt(armored, parsed...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(material); err != nil {
		return nil, fmt.Errorf("sealed: writing key: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing armor: %w", err)
	}
	return wrapped.Bytes(), nil
}

// Unwrap decrypts a wrapped master key with any of the identities in
// identityFile, which uses age's identity file format.
func Unwrap(wrapped, identityFile []byte) (*secret.Key, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identities: %w", err)
	}

	var source io.Reader = bytes.NewReader(wrapped)
	buffered := bufio.NewReader(source)
	if start, _ := buffered.Peek(len(armor.Header)); string(start) == armor.Header {
		source = armor.NewReader(buffered)
	} else {
		source = buffered
	}

	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	// One byte beyond KeySize distinguishes a long payload from an
	// exact one.
	material, err := io.ReadAll(io.LimitReader(reader, secret.KeySize+1))
	if err != nil {
		secret.Zero(material)
		return nil, fmt.Errorf("sealed: reading key: %w", err)
	}
	return secret.NewKey(material)
}

// ReadKeyFile unwraps the key at path with the identities at
// identityPath. path "-" reads standard input.
func ReadKeyFile(path, identityPath string) (*secret.Key, error) {
	var wrapped []byte
	var err error
	if path == "-" {
		wrapped, err = io.ReadAll(os.Stdin)
	} else {
		wrapped, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("sealed: reading wrapped key: %w", err)
	}
	identityFile, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading identity file: %w", err)
	}
	defer secret.Zero(identityFile)
	return Unwrap(wrapped, identityFile)
}
