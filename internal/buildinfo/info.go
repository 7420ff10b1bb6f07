// Package buildinfo carries the version identity stamped at build time.
package buildinfo

// Set via -ldflags at release build; the defaults identify a source build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
