package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"mercator-hq/cwlens/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

type versionOutput struct {
	health.VersionInfo
	Platform string `json:"platform"`
}

func (v versionOutput) String() string {
	return "cwlens " + v.Version +
		"\nGit Commit: " + v.Commit +
		"\nBuild Date: " + v.BuildDate +
		"\nGo Version: " + v.GoVersion +
		"\nOS/Arch: " + v.Platform
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd.OutOrStdout(), versionOutput{
			VersionInfo: buildInfo(),
			Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		})
	},
}

func buildInfo() health.VersionInfo {
	return health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
