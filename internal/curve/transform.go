// Package curve reshapes a year of weekly prices into a bounded 0..100
// display series for sparkline charts. The transforms exaggerate movement on
// purpose; they are not statistics and must not be read as forecasts.
package curve

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"asaankisaan/internal/models"
)

var ErrUnknownKind = errors.New("unknown curve kind")

type Kind string

const (
	KindNone   Kind = "none"
	KindLog    Kind = "log"
	KindZScore Kind = "zscore"
)

// Display range of both pipelines.
const (
	displayMin = 0.0
	displayMax = 100.0
)

// Smallest price fed to the logarithm; keeps ln finite for zero or
// negative prices.
const minLogPrice = 1e-9

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindNone:
		return KindNone, nil
	case KindLog, KindZScore:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Apply runs the pipeline named by kind. KindNone returns points unchanged.
func Apply(kind Kind, points []models.PricePoint) ([]models.PricePoint, error) {
	switch kind {
	case KindNone, "":
		return points, nil
	case KindLog:
		return LogPolynomial(points), nil
	case KindZScore:
		return ZScoreSigmoid(points), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// LogPolynomial log-normalizes prices, bends them through a smoothstep
// curve, adds a small seasonal wave keyed on the "Week N" label and a rising
// time component, then scales into 0..100.
func LogPolynomial(points []models.PricePoint) []models.PricePoint {
	if len(points) == 0 {
		return []models.PricePoint{}
	}

	logs := make([]float64, len(points))
	logMin, logMax := math.Inf(1), math.Inf(-1)
	for i, p := range points {
		logs[i] = math.Log(math.Max(p.Price.InexactFloat64(), minLogPrice))
		logMin = math.Min(logMin, logs[i])
		logMax = math.Max(logMax, logs[i])
	}
	logRange := logMax - logMin

	out := make([]models.PricePoint, len(points))
	for i, p := range points {
		var normalizedIndex float64
		if len(points) > 1 {
			normalizedIndex = float64(i) / float64(len(points)-1)
		}

		x := 0.5
		if logRange > 0 {
			x = (logs[i] - logMin) / logRange
		}
		poly := 3*x*x - 2*x*x*x

		seasonal := math.Sin(2*math.Pi*float64(labelWeek(p.Label))/52.0) * 0.1

		t := poly + seasonal + normalizedIndex*0.3
		out[i] = withPrice(p, clamp(t*80+10, displayMin, displayMax))
	}
	return out
}

// ZScoreSigmoid squashes z-scores through a steep sigmoid and overlays one
// sine period across the series, then scales into 0..100.
func ZScoreSigmoid(points []models.PricePoint) []models.PricePoint {
	if len(points) == 0 {
		return []models.PricePoint{}
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price.InexactFloat64()
	}
	mean, sd := meanStdDev(prices)

	n := float64(len(points))
	out := make([]models.PricePoint, len(points))
	for i, p := range points {
		var z float64
		if sd > 0 {
			z = (prices[i] - mean) / sd
		}
		sigmoid := 1.0 / (1.0 + math.Exp(-z*2))
		timeComponent := math.Sin(2 * math.Pi * float64(i) / n)
		out[i] = withPrice(p, clamp(sigmoid*60+timeComponent*20+20, displayMin, displayMax))
	}
	return out
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(xs []float64) (mean, sd float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// labelWeek reads N from a "Week N" label; anything else counts as week 1.
func labelWeek(label string) int {
	if w, err := strconv.Atoi(strings.TrimPrefix(label, "Week ")); err == nil {
		return w
	}
	return 1
}

// clamp bounds v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func withPrice(p models.PricePoint, v float64) models.PricePoint {
	p.Price = decimal.NewFromFloat(v)
	return p
}
