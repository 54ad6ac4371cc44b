package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceRecord is one row of the crop price dataset. Prices are per 40kg.
type PriceRecord struct {
	Year           int             `json:"year"`
	WeekNumber     int             `json:"week_number"`
	Date           string          `json:"date"`
	Period         Period          `json:"-"`
	Market         string          `json:"market"`
	Commodity      string          `json:"commodity"`
	BasePrice      decimal.Decimal `json:"base_price"`
	InflationRate  decimal.Decimal `json:"inflation_rate"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
}

// Period is the (year, week) key encoded in a record's date string.
// A segment that is not numeric is left at zero, so such a period never
// matches a real week (weeks run 1..52).
type Period struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// ParsePeriod splits a "YYYY-WW" key.
func ParsePeriod(date string) Period {
	parts := strings.Split(date, "-")
	var p Period
	if len(parts) < 2 {
		return p
	}
	if y, err := strconv.Atoi(parts[0]); err == nil {
		p.Year = y
	}
	if w, err := strconv.Atoi(parts[1]); err == nil {
		p.Week = w
	}
	return p
}

type PricePoint struct {
	Label         string          `json:"label"`
	Price         decimal.Decimal `json:"price"`
	BasePrice     decimal.Decimal `json:"base_price"`
	InflationRate decimal.Decimal `json:"inflation_rate"`
}

// Point projects a record onto a chart point labelled with its date.
func (r PriceRecord) Point(label string) PricePoint {
	return PricePoint{
		Label:         label,
		Price:         r.PredictedPrice,
		BasePrice:     r.BasePrice,
		InflationRate: r.InflationRate,
	}
}

type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Arrow is the glyph the price cards show next to a commodity.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	default:
		return "="
	}
}

// SkippedRow records a dataset line that could not be parsed. Line is
// 1-based and counts the header.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ParseReport struct {
	Records   []PriceRecord `json:"-"`
	Skipped   []SkippedRow  `json:"skipped"`
	TotalRows int           `json:"total_rows"`
}

type LoadState int

const (
	NotLoaded LoadState = iota
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return "not_loaded"
	}
}

func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SeriesSummary describes one (commodity, market) price series.
type SeriesSummary struct {
	Market        string          `json:"market"`
	Commodity     string          `json:"commodity"`
	LatestDate    string          `json:"latest_date"`
	Latest        decimal.Decimal `json:"latest"`
	Previous      decimal.Decimal `json:"previous"`
	Trend         Trend           `json:"trend"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Min           decimal.Decimal `json:"min"`
	Max           decimal.Decimal `json:"max"`
	Mean          decimal.Decimal `json:"mean"`
	Points        int             `json:"points"`
}
