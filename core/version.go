package core

import "runtime/debug"

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X imgresponsiver/core.Version=$(git describe --tags --always)" .
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags.
var BuildTime = "unknown"

// GitCommit is the git commit hash, set at build time via ldflags. When left
// unset, the VCS revision stamped by the Go toolchain is used if present.
var GitCommit = "unknown"

// GetVersionInfo returns a formatted version string for --version, e.g.
// "v1.0.0 (built 2026-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	commit, built := GitCommit, BuildTime
	if commit == "unknown" || built == "unknown" {
		c, b := vcsStamp()
		if commit == "unknown" && c != "" {
			commit = c
		}
		if built == "unknown" && b != "" {
			built = b
		}
	}
	return Version + " (built " + built + ", commit " + commit + ")"
}

// vcsStamp reads vcs.revision and vcs.time from the embedded build info.
// Test binaries carry no VCS settings, so both are empty there.
func vcsStamp() (revision, modified string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.time":
			modified = s.Value
		}
	}
	return revision, modified
}
