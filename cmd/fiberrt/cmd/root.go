// Package cmd implements the fiberrt command line tool: a thin cobra
// wrapper around package sched for running a task manifest or a
// canned round-robin benchmark, built the way cmd/cue/cmd builds the
// cue tool's own root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Command wraps a cobra.Command, the way cmd/cue/cmd.Command embeds
// one for its subcommands to share.
type Command struct {
	*cobra.Command
}

// New builds the fiberrt root command with its run/bench/version
// subcommands attached.
func New(args []string) *Command {
	root := &cobra.Command{
		Use:   "fiberrt",
		Short: "fiberrt runs tasks on a fiber-based task scheduler",

		SilenceErrors: true,
		SilenceUsage:  true,
	}
	c := &Command{Command: root}

	root.AddCommand(newRunCmd(c))
	root.AddCommand(newBenchCmd(c))
	root.AddCommand(newVersionCmd(c))

	root.SetArgs(args)
	return c
}

// Main runs fiberrt and returns the process exit code.
func Main() int {
	c := New(os.Args[1:])
	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
