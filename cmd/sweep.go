package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-queue audits stuck in processing or failed past the staleness window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		requeued, err := env.orch.SweepOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d stale audit(s) re-queued\n", requeued)

		drain, _ := cmd.Flags().GetBool("drain")
		if drain && requeued > 0 {
			env.processor.Drain(ctx)
			fmt.Println("queue drained")
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().Bool("drain", false, "process the re-queued jobs before exiting")
	rootCmd.AddCommand(sweepCmd)
}
