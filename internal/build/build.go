// Package build provides the build information injected with -ldflags at release time.
package build

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
