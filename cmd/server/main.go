package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"asaankisaan/internal/api"
	"asaankisaan/internal/app"
	"asaankisaan/internal/config"
)

var (
	flagAddr    string
	flagSource  string
	flagCatalog string
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve crop price analytics over HTTP",
	Long: `Loads the crop price dataset in the background and serves market,
price history, trend and chart curve queries as JSON.

Configuration comes from ASAAN_* environment variables; flags override them.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides ASAAN_SERVER_ADDR)")
	rootCmd.Flags().StringVar(&flagSource, "source", "", "Dataset path or URL (overrides ASAAN_DATA_SOURCE)")
	rootCmd.Flags().StringVar(&flagCatalog, "catalog", "", "Reference catalog YAML (overrides ASAAN_DATA_CATALOG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if flagSource != "" {
		cfg.Data.Source = flagSource
	}
	if flagCatalog != "" {
		cfg.Data.Catalog = flagCatalog
	}

	a, err := app.New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log := a.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Server starts immediately; data routes answer 503 until the load lands.
	h := api.NewHandler(a.Store, a.Source, a.Catalog, a.Locator)
	e := api.NewServer(h, api.ServerOptions{
		Logger:         log,
		Metrics:        a.Metrics,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
	})

	// 2. Load in the background, then keep reloading if configured.
	go func() {
		log.Info().Str("source", a.Source.Name()).Msg("BACKGROUND: loading price data")
		t0 := time.Now()
		if _, err := a.Store.Load(ctx, a.Source); err == nil {
			log.Info().Dur("took", time.Since(t0)).Msg("BACKGROUND: price data ready")
		}
		a.Store.Watch(ctx, a.Source, cfg.Data.ReloadInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
