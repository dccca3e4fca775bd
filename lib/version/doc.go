// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for xdm binaries.
//
// [Commit], [Dirty] and [BuildTime] may be injected with -ldflags -X.
// When they are not, the values the Go toolchain stamps into the
// binary (vcs.revision, vcs.modified, vcs.time) are used instead, so a
// plain "go build" from a checkout still reports its commit.
//
// [Info] formats the one-line --version output; [Full] adds the Go
// version and platform.
package version
