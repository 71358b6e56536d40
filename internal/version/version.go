// Package version contains build version information.
package version

// Values below are set at build time via ldflags, e.g.
// -ldflags "-X github.com/bissquit/alerty/internal/version.Version=1.2.0".
var (
	Version   = "0.0.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
