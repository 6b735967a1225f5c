package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/core/edgar"
)

var (
	searchCIK  string
	searchForm string
	searchK    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Similarity search over ingested filing chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := map[string]any{}
		if searchCIK != "" {
			key, err := edgar.NormalizeCIK(searchCIK)
			if err != nil {
				return err
			}
			filter["company_key"] = key
		}
		if searchForm != "" {
			filter["form_type"] = upper(searchForm)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			hits, err := a.Filings.Search(ctx, args[0], filter, searchK)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(hits)
			}
			if len(hits) == 0 {
				fmt.Println("No results")
				return nil
			}
			for i, h := range hits {
				fmt.Printf("%d. [%.3f] %v %v\n", i+1, h.Score, h.Metadata["form_type"], h.Metadata["accession_id"])
				fmt.Printf("   %s\n\n", preview(h.Text, 240))
			}
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCIK, "cik", "", "restrict to one company")
	searchCmd.Flags().StringVar(&searchForm, "form", "", "restrict to one form type")
	searchCmd.Flags().IntVarP(&searchK, "top", "k", 5, "number of results")
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
