// Package version exposes the build metadata shared by the modpack
// binaries. Version, Commit, and BuildTime are injected via ldflags and
// default to local-build values; Full renders the single version line the
// CLIs print.
package version
