package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiberflow/fiberflow/sched"
)

// newBenchCmd builds a canned round-robin benchmark: n tasks, each
// yielding rounds times before finishing, spread across the configured
// task/reactor threads. It exists to give a quick, reproducible number
// for comparing scheduler configurations without writing a manifest.
func newBenchCmd(c *Command) *cobra.Command {
	var (
		taskThreads    int
		reactorThreads int
		numTasks       int
		rounds         int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "run a round-robin yield/wait benchmark and print its timing",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sched.DefaultOptions()
			opts.TaskThreads = taskThreads
			opts.ReactorThreads = reactorThreads

			s := sched.New(opts)
			s.Start()
			defer s.Stop()

			start := time.Now()

			refs := make([]sched.TaskRef, numTasks)
			for i := range refs {
				refs[i] = s.Create(func(h *sched.TaskHandle) {
					for r := 0; r < rounds; r++ {
						h.Yield()
					}
				})
			}
			for _, ref := range refs {
				ref.Wait()
			}

			// One more task that waits on a freshly created sibling,
			// exercising the reactor-hosted wait path at least once.
			waited := s.Create(func(h *sched.TaskHandle) {})
			s.Run(func(h *sched.TaskHandle) {
				h.WaitFor(waited)
			})

			elapsed := time.Since(start)
			fmt.Fprintf(cmd.OutOrStdout(), "%d tasks x %d yields across %d task thread(s), %d reactor(s): %s\n",
				numTasks, rounds, taskThreads, reactorThreads, elapsed)
			return nil
		},
	}

	cmd.Flags().IntVar(&taskThreads, "task-threads", 4, "number of task threads")
	cmd.Flags().IntVar(&reactorThreads, "reactor-threads", 1, "number of reactor threads")
	cmd.Flags().IntVar(&numTasks, "tasks", 1000, "number of tasks to create")
	cmd.Flags().IntVar(&rounds, "rounds", 100, "number of times each task yields before finishing")
	return cmd
}
