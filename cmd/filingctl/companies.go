package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/models"
)

var importCompaniesCmd = &cobra.Command{
	Use:   "import-companies",
	Short: "Download the SEC company directory into the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Companies.ImportDirectory(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]int{"companies": n})
			}
			fmt.Printf("Imported %d companies\n", n)
			return nil
		})
	},
}

var locateForms []string

var locateCmd = &cobra.Command{
	Use:   "locate <cik>",
	Short: "Show the latest filing per tracked form for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			locs, err := a.Filings.Locate(ctx, args[0], formTypes(locateForms))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(locs)
			}
			if len(locs) == 0 {
				fmt.Println("No tracked filings found")
				return nil
			}
			for _, l := range locs {
				fmt.Printf("%-6s %s  %s  %s\n", l.FormType, l.FilingDate, l.AccessionID, l.DocumentName)
			}
			return nil
		})
	},
}

func init() {
	locateCmd.Flags().StringSliceVarP(&locateForms, "form", "f", nil, "form types to locate (default 8-K, 8-K/A, 10-K, 10-Q)")
}

func formTypes(values []string) []models.FormType {
	var out []models.FormType
	for _, v := range values {
		out = append(out, models.FormType(upper(v)))
	}
	return out
}
