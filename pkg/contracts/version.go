package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the planner and its CLIs
	Version = "1.4.0"

	// DataFormatVersion versions the export column layout
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP and event contracts
	APIVersion = "v1"
)

// Set at link time, e.g. -ldflags "-X demandplanner/pkg/contracts.GitCommit=abc123"
var (
	BuildTime = ""
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time,omitempty"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// GetFullVersionString returns a one-line description of the build
func GetFullVersionString(program string) string {
	info := GetVersionInfo()
	built := info.BuildTime
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("%s v%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		program, info.Version, built, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
}
