// Package version reports build metadata stamped at link time
package version

import "runtime/debug"

// BuildInfo holds version information about a binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set via -ldflags, e.g.
//
//	-X 'timecapsule/internal/core/version.version=v0.3.0'
//	-X 'timecapsule/internal/core/version.commit=abcd123'
//	-X 'timecapsule/internal/core/version.date=2026-10-19'
var (
	version = "dev"
	commit  = ""
	date    = "unknown"
)

// Info returns the build information for service
// an unset commit falls back to the vcs revision recorded by the go toolchain
func Info(service string) BuildInfo {
	c := commit
	if c == "" {
		c = vcsRevision()
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  c,
		Date:    date,
	}
}

func vcsRevision() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "none"
}
