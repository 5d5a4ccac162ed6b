package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fiberflow/fiberflow/sched"
	"github.com/fiberflow/fiberflow/sched/schedcfg"
)

// manifest is the tiny task list fiberrt run executes: each task
// prints its name once it runs, which is enough to exercise the
// scheduler end to end from the command line without inventing a
// whole user-facing task language.
type manifest struct {
	Tasks []string `yaml:"tasks"`
}

func newRunCmd(c *Command) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <manifest.yaml>",
		Short: "load a YAML task manifest and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sched.DefaultOptions()
			if configPath != "" {
				var err error
				opts, err = schedcfg.Load(configPath)
				if err != nil {
					return err
				}
			}

			names, err := loadManifest(args[0])
			if err != nil {
				return err
			}

			s := sched.New(opts)
			s.Start()
			defer s.Stop()

			refs := make([]sched.TaskRef, len(names))
			for i, name := range names {
				name := name
				refs[i] = s.Create(func(h *sched.TaskHandle) {
					fmt.Fprintf(cmd.OutOrStdout(), "task %s done\n", name)
				})
			}
			for _, ref := range refs {
				ref.Wait()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a fiberrt.yaml scheduler config")
	return cmd
}

func loadManifest(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fiberrt: reading manifest %s: %w", path, err)
	}
	var m manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("fiberrt: parsing manifest %s: %w", path, err)
	}
	return m.Tasks, nil
}
