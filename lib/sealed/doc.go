// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps channel master keys for distribution with age.
//
// A host and its guests must share a master key before the verify or
// encrypt behaviors can work. The operator generates a key, wraps it to
// the x25519 recipients of every machine that runs a side of the
// channel, and ships the wrapped file. Each side unwraps it with its
// own identity file.
//
// Wrapped keys are ASCII armored. [Unwrap] also accepts the binary
// age format.
//
// Key exports:
//
//   - [GenerateIdentity] -- new x25519 identity and its recipient
//   - [Wrap] -- encrypt a master key to recipients
//   - [Unwrap] / [ReadKeyFile] -- recover a master key with identities
//   - [ParseRecipient] -- recipient validation
//
// Depends on lib/secret for locked key memory.
package sealed
