package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo is what `rlm version --json` prints.
type buildInfo struct {
	Version  string `json:"version"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo{
			Version:  version,
			Go:       runtime.Version(),
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
		}
		if jsonFlag {
			return printJSON(cmd, info)
		}
		cmd.Printf("rlm version %s (%s, %s)\n", info.Version, info.Go, info.Platform)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
