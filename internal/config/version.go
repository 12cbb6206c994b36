package config

import (
	"fmt"
	"runtime"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// Version is the canonical version of the risk monitor
const Version = "1.0.0"

// Set at build time with -ldflags "-X github.com/ajitpratap0/riskmonitor/internal/config.GitCommit=..."
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	LogSchema string `json:"logSchema"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	OSArch    string `json:"osArch"`
}

// GetBuildInfo returns the version details of the running binary
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		LogSchema: monitoring.LogSchemaVersion,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OSArch:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the build info on one line
func (b BuildInfo) String() string {
	return fmt.Sprintf("riskmonitor %s (log schema %s, commit %s, built %s, %s %s)",
		b.Version, b.LogSchema, b.GitCommit, b.BuildDate, b.GoVersion, b.OSArch)
}
