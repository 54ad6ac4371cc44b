package geo

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaankisaan/internal/catalog"
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 0, Distance(31.5204, 74.3587, 31.5204, 74.3587), 1e-9)
	// Lahore to Karachi is roughly 1030 km great-circle.
	assert.InDelta(t, 1030, Distance(31.5204, 74.3587, 24.8607, 67.0011), 25)
	// Symmetric.
	assert.InDelta(t,
		Distance(30.1575, 71.5249, 34.0151, 71.5249),
		Distance(34.0151, 71.5249, 30.1575, 71.5249), 1e-9)
}

func TestNearest(t *testing.T) {
	l := NewLocator(catalog.Default().Markets)

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{name: "lahore exact", lat: 31.5204, lon: 74.3587, want: "Lahore"},
		{name: "near karachi", lat: 24.9, lon: 67.1, want: "Karachi"},
		{name: "near peshawar", lat: 33.9, lon: 71.6, want: "Peshawar"},
		{name: "near quetta", lat: 30.2, lon: 67.0, want: "Quetta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := l.Nearest(tt.lat, tt.lon)
			assert.Equal(t, tt.want, m.Market.Name)
			assert.GreaterOrEqual(t, m.DistanceKm, 0.0)
		})
	}

	m := l.Nearest(31.5204, 74.3587)
	assert.InDelta(t, 0, m.DistanceKm, 1e-6)
}

func TestNearestTieKeepsFirst(t *testing.T) {
	l := NewLocator([]catalog.Market{
		{Name: "East", Latitude: 0, Longitude: 1},
		{Name: "West", Latitude: 0, Longitude: -1},
	})
	assert.Equal(t, "East", l.Nearest(0, 0).Market.Name)
}

func TestNearestNaN(t *testing.T) {
	l := NewLocator(catalog.Default().Markets)
	m := l.Nearest(math.NaN(), 74.0)
	assert.Equal(t, "Faisalabad", m.Market.Name)
	assert.Equal(t, -1.0, m.DistanceKm)
}

func TestRankNaN(t *testing.T) {
	l := NewLocator(catalog.Default().Markets)
	ranked := l.Rank(math.NaN(), 74.0)

	require.Len(t, ranked, 6)
	assert.Equal(t, "Faisalabad", ranked[0].Market.Name)
	for _, m := range ranked {
		assert.Equal(t, -1.0, m.DistanceKm, m.Market.Name)
	}

	_, err := json.Marshal(map[string]interface{}{
		"nearest": l.Nearest(math.NaN(), 74.0),
		"ranked":  ranked,
	})
	assert.NoError(t, err)
}

func TestNearestNoMarkets(t *testing.T) {
	assert.Equal(t, Match{}, NewLocator(nil).Nearest(31, 74))
}

func TestRank(t *testing.T) {
	l := NewLocator(catalog.Default().Markets)
	ranked := l.Rank(31.5204, 74.3587)

	require.Len(t, ranked, 6)
	assert.Equal(t, "Lahore", ranked[0].Market.Name)
	assert.Equal(t, "Faisalabad", ranked[1].Market.Name)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].DistanceKm, ranked[i].DistanceKm)
	}
}
