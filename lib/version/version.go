// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables may be set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/xdm/lib/version.Commit=$(git rev-parse --short HEAD)"
var (
	// Version is the semantic version. Set manually for releases.
	Version = "0.1.0-dev"

	// Commit is the short git SHA of the build.
	Commit = ""

	// Dirty is "true" when the build had uncommitted changes.
	Dirty = ""

	// BuildTime is the UTC timestamp of the build, or of the commit
	// when taken from the toolchain stamp.
	BuildTime = ""
)

// shortCommitLength matches git's default abbreviation.
const shortCommitLength = 7

// Build is the resolved build information.
type Build struct {
	Version   string
	Commit    string
	Dirty     bool
	BuildTime string
}

var (
	resolveOnce sync.Once
	resolved    Build
)

// Current returns the build information of the running binary.
func Current() Build {
	resolveOnce.Do(func() {
		info, _ := debug.ReadBuildInfo()
		resolved = resolve(info)
	})
	return resolved
}

// resolve merges the ldflags values over the toolchain's stamp. info
// may be nil.
func resolve(info *debug.BuildInfo) Build {
	build := Build{
		Version:   Version,
		Commit:    Commit,
		Dirty:     Dirty == "true",
		BuildTime: BuildTime,
	}
	if info != nil {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if build.Commit == "" {
					build.Commit = setting.Value
				}
			case "vcs.modified":
				if Dirty == "" {
					build.Dirty = setting.Value == "true"
				}
			case "vcs.time":
				if build.BuildTime == "" {
					build.BuildTime = setting.Value
				}
			}
		}
	}
	if len(build.Commit) > shortCommitLength {
		build.Commit = build.Commit[:shortCommitLength]
	}
	if build.Commit == "" {
		build.Commit = "unknown"
	}
	if build.BuildTime == "" {
		build.BuildTime = "unknown"
	}
	return build
}

// String formats the build as "0.1.0-dev (abc1234-dirty, 2026-...)".
func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.BuildTime)
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return Current().String()
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
