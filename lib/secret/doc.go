// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the shared channel keys used by the signing and
// encrypting stack behaviors.
//
// A [Key] lives in memory allocated with mmap outside the Go heap,
// locked against swap with mlock, and excluded from core dumps. Close
// zeroes and releases it. Keys are read from hex-encoded files with
// [ReadKeyFile] or generated with [Generate].
package secret
