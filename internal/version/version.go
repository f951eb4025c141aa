package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time,
// Go runtime and the telemetry backends compiled in.
func Full(backends ...string) string {
	line := fmt.Sprintf("gpufan %s, commit: %s, built at: %s, %s %s/%s",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	if len(backends) == 0 {
		return line
	}

	return line + ", telemetry: " + strings.Join(backends, ", ")
}
