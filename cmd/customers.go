package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/store"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Inspect customer records",
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		customers, err := st.ListCustomers(ctx, store.CustomerFilter{
			Status: model.CustomerStatus(status),
			Search: search,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "customers list")
		}

		if len(customers) == 0 {
			fmt.Fprintln(os.Stderr, "No customers found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tCOMPANY\tSTATUS\tPROGRESS\tWEBSITE\tUPDATED")
		for _, c := range customers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				c.Slug, c.CompanyName, c.Status, c.Progress, c.Website,
				c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var customersShowCmd = &cobra.Command{
	Use:   "show <customer-id-or-slug>",
	Short: "Show one customer record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customer, err := env.orch.Refresh(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(customer)
	},
}

func init() {
	customersListCmd.Flags().String("status", "", "filter by status (queued|processing|completed|failed|error)")
	customersListCmd.Flags().String("search", "", "free-text search over name/email/website/industry/location")
	customersListCmd.Flags().Int("limit", 50, "maximum rows")
	customersCmd.AddCommand(customersListCmd)
	customersCmd.AddCommand(customersShowCmd)
	rootCmd.AddCommand(customersCmd)
}
