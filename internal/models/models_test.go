package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
	}{
		{in: "2024-07", want: Period{Year: 2024, Week: 7}},
		{in: "2023-52-extra", want: Period{Year: 2023, Week: 52}},
		{in: "2024-xx", want: Period{Year: 2024}},
		{in: "yyyy-07", want: Period{Week: 7}},
		{in: "2024", want: Period{}},
		{in: "", want: Period{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePeriod(tt.in), tt.in)
	}
}

func TestTrendArrow(t *testing.T) {
	assert.Equal(t, "↑", TrendUp.Arrow())
	assert.Equal(t, "↓", TrendDown.Arrow())
	assert.Equal(t, "=", TrendFlat.Arrow())
}

func TestLoadStateJSON(t *testing.T) {
	out, err := json.Marshal(map[string]LoadState{"state": LoadFailed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"load_failed"}`, string(out))
	assert.Equal(t, "not_loaded", NotLoaded.String())
}

func TestPoint(t *testing.T) {
	r := PriceRecord{
		Date:           "2024-01",
		BasePrice:      decimal.NewFromInt(3000),
		InflationRate:  decimal.RequireFromString("2.5"),
		PredictedPrice: decimal.NewFromInt(3075),
	}
	p := r.Point("Week 1")
	assert.Equal(t, "Week 1", p.Label)
	assert.True(t, p.Price.Equal(r.PredictedPrice))
	assert.True(t, p.BasePrice.Equal(r.BasePrice))
	assert.True(t, p.InflationRate.Equal(r.InflationRate))
}
