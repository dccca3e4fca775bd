// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package behavior provides stack elements that sit between an
// application and its transport and transform traffic in both
// directions.
//
//   - [Queue] holds outgoing messages until the transport reports
//     readiness and optionally splits long messages into fragments.
//   - [Verify] prefixes every message with a keyed tag and drops
//     inbound messages whose tag does not match.
//   - [Encrypt] seals every message with a per-channel key.
//   - [Compress] compresses large messages with zstd or LZ4.
//
// Both ends of a channel must be built with matching behaviors in the
// same order. A behavior that cannot decode an inbound message drops
// it and logs at Debug; nothing is reported to the sender.
package behavior
