// Package version reports the duckie build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/duckielink/duckie/internal/version.Version=v0.3.0 \
//	                   -X github.com/duckielink/duckie/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

// Info is the resolved build identity
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get resolves the build identity. Values from ldflags win over the module
// build info, and a build with neither reports "dev".
func Get() Info {
	info, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, info)
}

func resolve(version, commit string, build *debug.BuildInfo) Info {
	out := Info{Version: version, Commit: commit, GoVersion: runtime.Version()}

	if build != nil {
		if out.Version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			out.Version = build.Main.Version
		}
		for _, s := range build.Settings {
			switch s.Key {
			case "vcs.revision":
				if out.Commit == "" {
					out.Commit = shortRevision(s.Value)
				}
			case "vcs.modified":
				out.Modified = s.Value == "true"
			}
		}
	}

	if out.Version == "" {
		out.Version = "dev"
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	return out
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String renders e.g. "v0.3.0 (commit abc1234-dirty, go1.24.10)"
func (i Info) String() string {
	commit := i.Commit
	if i.Modified && !strings.HasSuffix(commit, "-dirty") {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit %s, %s)", i.Version, commit, i.GoVersion)
}

// Full returns the full version string including commit
func Full() string {
	return Get().String()
}
