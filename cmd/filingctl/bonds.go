package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/core/bondfinder"
	"github.com/markdave123-py/filingscope/internal/services"
)

var (
	bondsMinRating  string
	bondsMaturities []string
	bondsYields     []string
)

var bondsCmd = &cobra.Command{
	Use:   "bonds",
	Short: "List bonds at or below a Moody's rating, linked to known companies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria, err := bondCriteria()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			listings, err := a.Bonds.FindBonds(ctx, criteria)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(listings)
			}
			for _, l := range listings {
				company := "-"
				if l.Company != nil {
					company = l.Company.Ticker
				}
				fmt.Printf("%-14s %-6s %-40s %-6s %s\n", l.Bond.ISIN, l.Bond.MoodysRating, l.Bond.Issuer, company, l.Bond.MaturityDate)
			}
			fmt.Printf("%d bonds\n", len(listings))
			return nil
		})
	},
}

func init() {
	bondsCmd.Flags().StringVar(&bondsMinRating, "min-rating", "Baa3", "strongest rating to include; weaker ratings are included too")
	bondsCmd.Flags().StringSliceVar(&bondsMaturities, "maturity", nil, "shortterm, midterm, longterm (default all)")
	bondsCmd.Flags().StringSliceVar(&bondsYields, "yield", nil, "minimum yield bands 0, 5, 10, 20 (default all)")
}

func bondCriteria() (services.BondCriteria, error) {
	var c services.BondCriteria
	rating, err := bondfinder.ParseMoodyRating(bondsMinRating)
	if err != nil {
		return c, err
	}
	c.MinRating = rating
	for _, s := range bondsMaturities {
		m, err := bondfinder.ParseMaturity(s)
		if err != nil {
			return c, err
		}
		c.Maturities = append(c.Maturities, m)
	}
	for _, s := range bondsYields {
		y, err := bondfinder.ParseYieldBand(s)
		if err != nil {
			return c, err
		}
		c.Yields = append(c.Yields, y)
	}
	return c, nil
}
