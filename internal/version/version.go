// Package version exposes build metadata embedded at compile time.
//
// Version and Commit are set via -ldflags:
//
//	go build -ldflags "-X github.com/clipscribe/clipscribe/internal/version.Version=1.0.0"
package version

import "runtime/debug"

// Set at build time via -ldflags. The module build info fills gaps for
// plain `go build` binaries.
var (
	Version = "dev"
	Commit  = ""
)

// Info is the build identity reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

// Get returns the build identity, resolving the commit from embedded
// VCS info when ldflags did not set it.
func Get() Info {
	info := Info{Version: Version, Commit: Commit}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = buildInfo.GoVersion
	if info.Commit == "" {
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" {
				info.Commit = setting.Value
				if len(info.Commit) > 7 {
					info.Commit = info.Commit[:7]
				}
				break
			}
		}
	}
	return info
}

// String renders "version (commit)" for log lines.
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	return i.Version + " (" + i.Commit + ")"
}
