// Package version identifies the running tickora binary. Release builds stamp it with
//
//	-ldflags "-X github.com/tickora-io/tickora/internal/version.Version=v1.2.0 \
//	          -X github.com/tickora-io/tickora/internal/version.Commit=abc1234 \
//	          -X github.com/tickora-io/tickora/internal/version.BuildDate=2024-05-06"
//
// A plain go build leaves the development defaults.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short commit the binary was built from.
	Commit = ""
	// BuildDate is the UTC day of the build.
	BuildDate = ""
)

// Build is what `tickora version --json` prints.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Current describes this binary.
func Current() Build {
	return Build{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String is the --version text: "v1.2.0 (abc1234)", or the bare version for unstamped builds.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

// Short returns the release tag alone. The API client appends it to its User-Agent.
func Short() string {
	return Version
}

// Full adds the build date and Go toolchain to String.
func Full() string {
	s := String()
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s + " with " + runtime.Version()
}
