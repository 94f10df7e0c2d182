// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/nexmeet/nexmeet-chat/internal/version.Version=1.0.0 \
//	                   -X github.com/nexmeet/nexmeet-chat/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/nexmeet/nexmeet-chat/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Without ldflags, Commit falls back to the VCS revision embedded by the Go toolchain.
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the version reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    commit(debug.ReadBuildInfo),
		BuildTime: BuildTime,
	}
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ") built " + i.BuildTime
}

func commit(read func() (*debug.BuildInfo, bool)) string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := read()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return Commit
}
