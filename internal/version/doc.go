// Package version exposes build metadata for gpufan.
//
// Version, Commit and BuildTime are injected with -ldflags "-X" at build time.
package version
