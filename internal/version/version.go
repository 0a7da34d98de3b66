// Package version carries build metadata stamped in with -ldflags:
//
//	go build -ldflags "-X github.com/banshee-data/gridindex/internal/version.Version=v0.3.0" ./cmd/gridindex
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for the version subcommand.
func String() string {
	return fmt.Sprintf("gridindex %s (commit %s, built %s, %s %s/%s)",
		Version, GitSHA, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
