// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags. This information can be useful for debugging,
// logging, and displaying version information to users.
package build

import (
	"fmt"
	"strings"
)

// Description is the one-line summary shown in --help.
const Description = "Live audio spectrum visualizer for the terminal"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation, e.g.
//
//	-X termviz/pkg/build.buildName=termviz -X termviz/pkg/build.buildVersion=v0.3.0
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = devFlags()
)

func devFlags() *ldFlags {
	return &ldFlags{
		Name:        "termviz",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies build information from the ldflags variables into the
// buildFlags struct. Missing values keep their development defaults; their
// names are returned in the error so the caller can warn about them. The
// binary is still usable in that case.
func Initialize() error {
	flags := devFlags()
	var missing []string

	set := func(dst *string, value, name string) {
		if value == "" {
			missing = append(missing, name)
			return
		}
		*dst = value
	}
	set(&flags.Name, buildName, "BuildName")
	set(&flags.Time, buildTime, "BuildTime")
	set(&flags.Commit, buildCommit, "BuildCommit")
	set(&flags.Version, buildVersion, "BuildVersion")

	buildFlags = flags

	if len(missing) > 0 {
		return fmt.Errorf("build flags not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// VersionString formats the version line printed by --version.
func (f *ldFlags) VersionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}
