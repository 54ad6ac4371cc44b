package geo

import (
	"math"
	"sort"

	"asaankisaan/internal/catalog"
)

const earthRadiusKm = 6371.0

// Distance computes the great-circle distance in km between two lat/lon
// coordinates given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

type Match struct {
	Market     catalog.Market `json:"market"`
	DistanceKm float64        `json:"distance_km"`
}

// Locator resolves coordinates to the closest reference market.
type Locator struct {
	markets []catalog.Market
}

func NewLocator(markets []catalog.Market) *Locator {
	return &Locator{markets: append([]catalog.Market(nil), markets...)}
}

// Nearest returns the closest market. Ties keep the earlier market, and
// coordinates that produce no comparable distance (NaN) fall back to the
// first market with a distance of -1. With no markets it returns the zero
// Match.
func (l *Locator) Nearest(lat, lon float64) Match {
	if len(l.markets) == 0 {
		return Match{}
	}
	best := Match{Market: l.markets[0], DistanceKm: math.MaxFloat64}
	for _, m := range l.markets {
		if d := Distance(lat, lon, m.Latitude, m.Longitude); d < best.DistanceKm {
			best = Match{Market: m, DistanceKm: d}
		}
	}
	if best.DistanceKm == math.MaxFloat64 {
		best.DistanceKm = -1
	}
	return best
}

// Rank returns every market ordered by distance, nearest first. Distances
// that are not comparable (NaN) are reported as -1, as in Nearest.
func (l *Locator) Rank(lat, lon float64) []Match {
	out := make([]Match, len(l.markets))
	for i, m := range l.markets {
		d := Distance(lat, lon, m.Latitude, m.Longitude)
		if math.IsNaN(d) {
			d = -1
		}
		out[i] = Match{Market: m, DistanceKm: d}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceKm < out[b].DistanceKm })
	return out
}
