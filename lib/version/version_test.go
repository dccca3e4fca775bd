// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withLinkerValues(t *testing.T, commit, dirty, buildTime string) {
	t.Helper()
	savedCommit, savedDirty, savedTime := Commit, Dirty, BuildTime
	t.Cleanup(func() { Commit, Dirty, BuildTime = savedCommit, savedDirty, savedTime })
	Commit, Dirty, BuildTime = commit, dirty, buildTime
}

func stamped(settings ...debug.BuildSetting) *debug.BuildInfo {
	return &debug.BuildInfo{Settings: settings}
}

func TestResolveWithoutAnyInformation(t *testing.T) {
	withLinkerValues(t, "", "", "")

	build := resolve(nil)
	if build.Commit != "unknown" || build.BuildTime != "unknown" || build.Dirty {
		t.Errorf("unexpected build: %+v", build)
	}
	if build.Version != Version {
		t.Errorf("Version = %q, want %q", build.Version, Version)
	}
}

func TestResolveFromToolchainStamp(t *testing.T) {
	withLinkerValues(t, "", "", "")

	build := resolve(stamped(
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
	))
	if build.Commit != "0123456" {
		t.Errorf("Commit = %q, want abbreviated revision", build.Commit)
	}
	if !build.Dirty {
		t.Error("expected Dirty from vcs.modified")
	}
	if build.BuildTime != "2026-10-01T12:00:00Z" {
		t.Errorf("BuildTime = %q", build.BuildTime)
	}
}

func TestResolveLinkerValuesWin(t *testing.T) {
	withLinkerValues(t, "feedbee", "false", "2026-10-02T00:00:00Z")

	build := resolve(stamped(
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
	))
	want := Build{Version: Version, Commit: "feedbee", Dirty: false, BuildTime: "2026-10-02T00:00:00Z"}
	if build != want {
		t.Errorf("resolve = %+v, want %+v", build, want)
	}
}

func TestBuildString(t *testing.T) {
	build := Build{Version: "1.2.3", Commit: "abc1234", Dirty: true, BuildTime: "now"}
	if got, want := build.String(), "1.2.3 (abc1234-dirty, now)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	build.Dirty = false
	if got, want := build.String(), "1.2.3 (abc1234, now)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q does not start with Info()", full)
	}
	if !strings.Contains(full, "Platform: ") {
		t.Errorf("Full() = %q missing platform", full)
	}
}
