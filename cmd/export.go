package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <customer-id-or-slug>",
	Short: "Re-render report artifacts from the latest stored audit result",
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
		result, err := env.store.GetLatestResult(ctx, customer.ID)
		if err != nil {
			return eris.Wrapf(err, "export: no stored result for %s", customer.Slug)
		}

		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		switch format {
		case "all", "":
			path, err := env.assembler.Assemble(ctx, customer, result)
			if err != nil {
				return err
			}
			fmt.Printf("report written to %s\n", path)
			return nil
		case "html":
			data, err := env.assembler.RenderHTML(customer, result)
			if err != nil {
				return err
			}
			return writeArtifact(out, customer.Slug+"-report.html", data)
		case "csv":
			for name, render := range map[string]func() ([]byte, error){
				customer.Slug + "-technical-issues.csv": func() ([]byte, error) {
					return env.assembler.TechnicalIssuesCSV(result)
				},
				customer.Slug + "-keyword-opportunities.csv": func() ([]byte, error) {
					return env.assembler.KeywordOpportunitiesCSV(result)
				},
				customer.Slug + "-competitor-comparison.csv": func() ([]byte, error) {
					return env.assembler.CompetitorComparisonCSV(result)
				},
			} {
				data, err := render()
				if err != nil {
					return err
				}
				if err := writeArtifact(out, name, data); err != nil {
					return err
				}
			}
			return nil
		case "xlsx":
			data, err := env.assembler.WorkbookXLSX(customer, result)
			if err != nil {
				return err
			}
			return writeArtifact(out, customer.Slug+"-audit.xlsx", data)
		default:
			return eris.Errorf("unknown export format %q", format)
		}
	},
}

func writeArtifact(dir, name string, data []byte) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", name)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func init() {
	exportCmd.Flags().String("format", "all", "artifact format (all|html|csv|xlsx)")
	exportCmd.Flags().String("out", "", "output directory (default current directory)")
	rootCmd.AddCommand(exportCmd)
}
