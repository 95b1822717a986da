package version

import (
	"runtime"
	"runtime/debug"
)

// set with -ldflags "-X autonomity/src/version.Version=..."
var (
	Commit         = "unknown"
	Version        = "unknown"
	BuildTimestamp = "unknown"
)

type BuildInfo struct {
	Version        string            `json:"version"`
	Commit         string            `json:"commit"`
	BuildTimestamp string            `json:"build_timestamp"`
	GoVersion      string            `json:"go_version"`
	Settings       map[string]string `json:"settings,omitempty"`
}

// GetBuildInfo merges the linker-set values with the VCS settings the Go
// toolchain embeds. An unset Commit falls back to vcs.revision.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:        Version,
		Commit:         Commit,
		BuildTimestamp: BuildTimestamp,
		GoVersion:      runtime.Version(),
		Settings:       map[string]string{},
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			info.Settings[s.Key] = s.Value
		}
	}
	if info.Commit == "unknown" {
		if revision, ok := info.Settings["vcs.revision"]; ok {
			info.Commit = revision
		}
	}
	return info
}
