package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"asaankisaan/internal/app"
	"asaankisaan/internal/config"
	"asaankisaan/internal/engine"
)

var (
	flagSource  string
	flagCatalog string
	flagFormat  string
)

// rootCmd is the base command for the pricectl CLI
var rootCmd = &cobra.Command{
	Use:   "pricectl",
	Short: "Query the crop price dataset from the command line",
	Long: `pricectl loads the crop price dataset once and answers the same queries
as the HTTP service: nearest market, current prices, history, weekly window,
chart curves, per-series overview and Arrow export.

Example usage:
  pricectl nearest --lat 31.52 --lon 74.35
  pricectl current --market Lahore
  pricectl curve --commodity Wheat --market Lahore --kind zscore --format json`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "Dataset path or URL (overrides ASAAN_DATA_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "Reference catalog YAML (overrides ASAAN_DATA_CATALOG)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "table", "Output format: table, json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the application from env and persistent flags. Logs go to
// stderr so stdout stays clean for output.
func newApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagSource != "" {
		cfg.Data.Source = flagSource
	}
	if flagCatalog != "" {
		cfg.Data.Catalog = flagCatalog
	}
	return app.New(cfg, os.Stderr)
}

// loadSnapshot builds the app and loads the dataset once.
func loadSnapshot(ctx context.Context) (*app.App, *engine.Snapshot, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	snap, err := a.Store.Load(ctx, a.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load price data: %w", err)
	}
	return a, snap, nil
}

// resolveMarket returns market when set, else the market nearest to
// lat/lon when both flags were given.
func resolveMarket(cmd *cobra.Command, a *app.App, market string, lat, lon float64) (string, error) {
	if market != "" {
		return market, nil
	}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		return a.Locator.Nearest(lat, lon).Market.Name, nil
	}
	return "", fmt.Errorf("--market or --lat/--lon is required")
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantJSON() bool {
	return strings.EqualFold(flagFormat, "json")
}
