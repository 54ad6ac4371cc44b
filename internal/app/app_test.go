package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaankisaan/internal/config"
	"asaankisaan/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"year,weekNumber,date,marketLocation,commodity,basePricePer40kg,inflationRatePercent,predictedPricePer40kg\n"+
			"2024,1,2024-01,Lahore,Wheat,3000,2.5,3075\n"), 0o644))

	cfg := testConfig(t)
	cfg.Data.Source = path

	a, err := New(cfg, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, models.NotLoaded, a.Store.Snapshot().State)
	assert.Equal(t, path, a.Source.Name())
	assert.Equal(t, "Lahore", a.Locator.Nearest(31.52, 74.35).Market.Name)

	snap, err := a.Store.Load(context.Background(), a.Source)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

func TestNewBadCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Catalog = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, io.Discard)
	assert.Error(t, err)
}
