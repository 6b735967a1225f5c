package main

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/core/ingestion_engine"
)

var (
	ingestOverwrite bool
	ingestForms     []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <cik|name>",
	Short: "Ingest a company's latest filings",
	Long: `Locate, fetch, chunk and embed the latest filing of each tracked form.
A numeric argument is taken as a CIK, anything else is resolved as a company name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := strings.TrimSpace(args[0])
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var (
				rep *ingestion_engine.IngestReport
				err error
			)
			if isCIK(target) {
				rep, err = a.Filings.Ingest(ctx, target, formTypes(ingestForms), ingestOverwrite)
			} else {
				if len(ingestForms) > 0 {
					return fmt.Errorf("--form needs a CIK argument")
				}
				rep, err = a.Filings.IngestByName(ctx, target, ingestOverwrite)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(rep)
			}
			printReport(rep)
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestOverwrite, "overwrite", false, "re-ingest documents already recorded")
	ingestCmd.Flags().StringSliceVarP(&ingestForms, "form", "f", nil, "form types to ingest (CIK only)")
}

func isCIK(s string) bool {
	s = strings.TrimPrefix(strings.ToUpper(s), "CIK")
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func printReport(rep *ingestion_engine.IngestReport) {
	fmt.Printf("Company %s: %d ingested, %d skipped, %d failed\n", rep.CompanyKey, rep.Ingested, rep.Skipped, rep.Failed)
	for _, d := range rep.Documents {
		line := fmt.Sprintf("  %-6s %s  %-18s chunks=%d", d.Location.FormType, d.Location.AccessionID, d.State, d.ChunkCount)
		if d.Error != "" {
			line += "  error=" + d.Error
		}
		fmt.Println(line)
	}
}
