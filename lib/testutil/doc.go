// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers for the few xdm tests that drive an
// event loop from a real goroutine. Everything else runs the loop
// deterministically with RunUntilIdle and a fake clock.
//
// Every wait is bounded by [Timeout] and fails the test through
// t.Fatalf rather than returning an error.
package testutil
