package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Create a customer and queue their first audit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.IntakeRequest{}
		req.CompanyName, _ = cmd.Flags().GetString("company")
		req.ContactName, _ = cmd.Flags().GetString("contact")
		req.Email, _ = cmd.Flags().GetString("email")
		req.Phone, _ = cmd.Flags().GetString("phone")
		req.Website, _ = cmd.Flags().GetString("website")
		req.Industry, _ = cmd.Flags().GetString("industry")
		req.Location, _ = cmd.Flags().GetString("location")
		req.Competitors, _ = cmd.Flags().GetStringArray("competitor")
		req.TargetKeywords, _ = cmd.Flags().GetStringArray("keyword")

		resp, err := env.orch.Intake(ctx, req)
		if err != nil {
			return err
		}

		if wait, _ := cmd.Flags().GetBool("wait"); wait {
			env.processor.Drain(ctx)
			// Re-read so the printed record reflects the finished audit.
			if fresh, err := env.orch.Refresh(ctx, resp.CustomerID); err == nil {
				resp.Status = string(fresh.Status)
				resp.ReportURL = reportLocator(fresh)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	intakeCmd.Flags().String("company", "", "company name (required)")
	intakeCmd.Flags().String("contact", "", "contact name")
	intakeCmd.Flags().String("email", "", "contact email (required)")
	intakeCmd.Flags().String("phone", "", "contact phone")
	intakeCmd.Flags().String("website", "", "primary website URL (required)")
	intakeCmd.Flags().String("industry", "", "industry")
	intakeCmd.Flags().String("location", "", "geographic location")
	intakeCmd.Flags().StringArray("competitor", nil, "competitor URL (repeatable)")
	intakeCmd.Flags().StringArray("keyword", nil, "target keyword (repeatable)")
	intakeCmd.Flags().Bool("wait", false, "process the audit before returning")
	rootCmd.AddCommand(intakeCmd)
}
