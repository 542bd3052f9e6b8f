// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version for --version output.
package version

import "runtime/debug"

// version is overridden at build time:
//
//	go build -ldflags "-X github.com/kubefs-project/kubefs/lib/version.version=v0.3.0"
var version = "dev"

// Info returns the human-readable version string. Development builds
// fall back to the VCS revision recorded in the build info.
func Info() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	revision := ""
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if dirty {
		return "dev-" + revision + "-dirty"
	}
	return "dev-" + revision
}
