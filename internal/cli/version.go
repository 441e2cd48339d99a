package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set through -ldflags "-X ctxwin/internal/cli.Version=..." at release time.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// currentBuildInfo fills commit and time from the VCS stamp when they were
// not injected by the linker.
func currentBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// NewVersionCmd 创建 version 命令
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// version skips the root pre-run, so the output flag is read here.
			format := OutputText
			if f := cmd.Flag("output"); f != nil {
				var err error
				if format, err = parseOutputFormat(f.Value.String()); err != nil {
					return err
				}
			}
			if format == OutputAuto {
				format = OutputText
			}

			info := currentBuildInfo()
			return render(cmd.OutOrStdout(), format, info, func(w io.Writer) error {
				fmt.Fprintf(w, "ctxwin %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
				if info.GitCommit != "" {
					fmt.Fprintf(w, "commit %s %s\n", info.GitCommit, info.BuildTime)
				}
				return nil
			})
		},
	}
}
