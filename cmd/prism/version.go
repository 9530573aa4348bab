package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"prism/internal/version"
)

type buildMetadata struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"build_date,omitempty"`
}

var versionAsJSON bool

func init() {
	versionCmd.Flags().BoolVar(&versionAsJSON, "json", false, "emit build metadata as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show prism build metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildInfo()
		out := cmd.OutOrStdout()
		if versionAsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintf(out, "prism %s\n", info.Version)
		if info.Commit != "" {
			fmt.Fprintf(out, "commit: %s\n", info.Commit)
		}
		if info.Date != "" {
			fmt.Fprintf(out, "built:  %s\n", info.Date)
		}
		return nil
	},
}

func buildInfo() buildMetadata {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	return buildMetadata{
		Tool:    "prism",
		Version: v,
		Commit:  strings.TrimSpace(version.GitCommit),
		Date:    strings.TrimSpace(version.BuildDate),
	}
}
