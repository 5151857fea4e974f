package main

import (
	"fmt"

	"github.com/reglet-dev/framescript"
	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	API     string `json:"api"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: version, Commit: commit, API: framescript.Version}
			out := cmd.OutOrStdout()

			switch format, _ := cmd.Flags().GetString("output"); format {
			case "json":
				data, err := marshalOutput(info, false)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "", "text":
				fmt.Fprintf(out, "framescript %s (commit %s, api %s)\n", info.Version, info.Commit, info.API)
			default:
				return fmt.Errorf("unknown output format: %s", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text or json")
	return cmd
}
