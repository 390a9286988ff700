// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build metadata for the --version flag.
func String() string {
	return fmt.Sprintf("boxseed version %s\nCommit: %s\nBuilt: %s", Version, GitCommit, BuildDate)
}
