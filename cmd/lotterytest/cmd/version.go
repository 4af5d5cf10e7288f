package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/lotterytest/internal/lotterytest"
)

// Print version info and exit.
func versionCmd(app *lotterytest.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			return app.Version()
		},
	}
	return cmd
}
