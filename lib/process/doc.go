// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for xdm binaries: fatal
// error reporting before or after the structured logger exists, and
// the mapping from a run error to a process exit code.
package process
