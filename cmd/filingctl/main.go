package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/filingscope/internal/app"
	"github.com/markdave123-py/filingscope/internal/config"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "filingctl",
	Short: "Ingest and search SEC filings from the command line",
	Long: `filingctl drives the same services as the HTTP API against the configured
database. Configuration is read from the environment and .env.

Examples:
  filingctl import-companies
  filingctl ingest 320193 --form 10-K
  filingctl ingest "Apple" --overwrite
  filingctl search "supply chain risk" --cik 320193 -k 3
  filingctl bonds --min-rating Baa3 --maturity shortterm`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")

	rootCmd.AddCommand(importCompaniesCmd, locateCmd, ingestCmd, searchCmd, bondsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the application and hands it to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Nop()
	if verbose {
		l, err := logger.New(cfg.LogMode)
		if err != nil {
			return err
		}
		defer l.Sync()
		log = l
	}

	ctx := cmd.Context()
	a, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
