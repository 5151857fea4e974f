package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/reglet-dev/framescript/hostfuncs"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List the host operations scripts can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := hostfuncs.DefaultRegistry(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if names, _ := cmd.Flags().GetBool("names"); names {
				list := reg.Names()
				sort.Strings(list)
				for _, name := range list {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			colored := out == os.Stdout && isTerminal(os.Stdout)
			data, err := marshalOutput(reg.Schemas(), colored)
			if err != nil {
				return fmt.Errorf("failed to marshal schemas: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
	cmd.Flags().Bool("names", false, "print operation names only")
	return cmd
}
