package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
)

var auditCmd = &cobra.Command{
	Use:   "audit <customer-id-or-slug>",
	Short: "Queue (or re-queue) an audit for an existing customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		jobID, err := env.orch.Retrigger(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("job %s queued\n", jobID)

		if wait, _ := cmd.Flags().GetBool("wait"); wait {
			env.processor.Drain(ctx)
			customer, err := env.orch.Refresh(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("customer %s: %s (%d%%)\n", customer.Slug, customer.Status, customer.Progress)
			if customer.Status == model.CustomerStatusCompleted {
				fmt.Printf("report: %s\n", reportLocator(customer))
			}
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Bool("wait", false, "process the audit before returning")
	rootCmd.AddCommand(auditCmd)
}
