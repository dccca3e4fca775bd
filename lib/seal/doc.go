// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package seal derives per-channel keys from a shared [secret.Key] and
// uses them to authenticate or encrypt individual messages.
//
// Every channel gets its own pair of keys, derived with HKDF-SHA256
// using the channel name in the info parameter, so a tag or
// ciphertext produced on one channel is rejected on every other.
// [Tag] is a truncated BLAKE3 keyed hash. [Seal] and [Open] use
// XChaCha20-Poly1305 with a random nonce, authenticating a version
// byte and the channel name as additional data.
package seal
