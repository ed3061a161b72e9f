// Package version contains version information.
package version

import (
	"fmt"
	"runtime"
)

// Build metadata, set via -ldflags "-X github.com/zorak1103/conman/internal/version.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns the build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the version with build metadata, as shown by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (build: %s, commit: %s, %s %s)", i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.Platform)
}
