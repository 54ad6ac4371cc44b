package curve

import (
	"github.com/shopspring/decimal"

	"asaankisaan/internal/models"
)

// KeyPoints keeps every stride-th point and always the last one, which is
// how the year chart picks the weeks it labels.
func KeyPoints(points []models.PricePoint, stride int) []models.PricePoint {
	if stride <= 1 {
		return append([]models.PricePoint(nil), points...)
	}
	out := make([]models.PricePoint, 0, len(points)/stride+1)
	for i, p := range points {
		if i%stride == 0 || i == len(points)-1 {
			out = append(out, p)
		}
	}
	return out
}

// Bounds returns the lowest and highest price for axis labels; ok is false
// for an empty series.
func Bounds(points []models.PricePoint) (lo, hi decimal.Decimal, ok bool) {
	if len(points) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	lo, hi = points[0].Price, points[0].Price
	for _, p := range points[1:] {
		if p.Price.LessThan(lo) {
			lo = p.Price
		}
		if p.Price.GreaterThan(hi) {
			hi = p.Price
		}
	}
	return lo, hi, true
}
