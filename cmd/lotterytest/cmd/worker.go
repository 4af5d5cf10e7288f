package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/lotterytest/internal/lotterytest/spin"
	"github.com/armadaproject/lotterytest/internal/lotterytest/workerpool"
)

// Body of each worker process started by the harness. Blocks until the harness writes to stdin,
// then burns CPU until stdin is closed or the process is killed.
func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    workerpool.WorkerCommand,
		Short:  "Run a single CPU-bound worker. Started by the harness.",
		Hidden: true,
		Args:   cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			// The harness discards worker stdout.
			log.SetOutput(os.Stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cpu, err := cmd.Flags().GetInt("cpu")
			if err != nil {
				return err
			}
			return spin.Run(os.Stdin, cpu)
		},
	}
	cmd.Flags().Int("cpu", -1, "CPU to pin the worker to. Negative disables pinning.")
	return cmd
}
