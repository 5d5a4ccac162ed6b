// Command fiberrt runs task manifests and benchmarks on top of
// package sched, the way cmd/cue is the command-line face of the CUE
// evaluator.
package main

import (
	"os"

	"github.com/fiberflow/fiberflow/cmd/fiberrt/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
