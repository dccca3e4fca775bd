// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads xdm-sim scenario files.
//
// A scenario is loaded from a single file named either by the
// XDM_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There are no fallbacks and no automatic file search.
//
// The format is chosen by extension: .yaml and .yml are decoded as
// YAML; .json and .jsonc are decoded as JSON after comments and
// trailing commas are stripped; .toml is decoded as TOML and rejects
// unknown keys. Values absent from the file keep the defaults returned
// by [Default].
//
// Key exports:
//
//   - [Scenario] -- host and guest documents, channel, behaviors, messages
//   - [Default] -- returns a runnable echo scenario
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other xdm packages.
package config
