// Package app wires configuration, logging, metrics, reference data and the
// price store into one value shared by the server and the CLI.
package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"asaankisaan/internal/catalog"
	"asaankisaan/internal/config"
	"asaankisaan/internal/engine"
	"asaankisaan/internal/geo"
	"asaankisaan/internal/logging"
	"asaankisaan/internal/metrics"
	"asaankisaan/internal/source"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Catalog *catalog.Catalog
	Locator *geo.Locator
	Store   *engine.Store
	Source  engine.Source
}

// New builds the application. Nothing is loaded yet; call Store.Load with
// Source.
func New(cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, logOut)

	cat, err := catalog.Load(cfg.Data.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	m := metrics.New()
	store := engine.NewStore(engine.StoreOptions{
		Logger:       logger,
		Metrics:      m,
		FetchTimeout: cfg.Data.FetchTimeout,
	})

	logger.Debug().
		Str("source", cfg.Data.Source).
		Int("markets", len(cat.Markets)).
		Int("commodities", len(cat.Commodities)).
		Msg("application configured")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Catalog: cat,
		Locator: geo.NewLocator(cat.Markets),
		Store:   store,
		Source:  source.New(cfg.Data.Source),
	}, nil
}
