package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overwritten at build time via -ldflags, matching
// cmd/cue's own version-stamping convention.
var version = "devel"

func newVersionCmd(c *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print fiberrt's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
