package version

import "fmt"

var (
	// Version is the semantic version of this modpack toolchain build.
	// Overridden via ldflags on release builds.
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

// Full renders the version line the CLIs print: tool version plus the
// build's commit and timestamp.
func Full() string {
	return fmt.Sprintf("modpack %s (commit %s, built %s)", Version, Commit, BuildTime)
}
