// Package version reports the bundlefang build identity.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/bundlefang/pkg/version.Version=..." at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills unset fields from the module build info, so
// `go install` builds still report something useful.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the build identity for `bundlefang version` and banners.
func String() string {
	return fmt.Sprintf("bundlefang %s (commit: %s, built: %s)", Version, Commit, Date)
}
