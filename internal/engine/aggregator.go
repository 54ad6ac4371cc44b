package engine

import (
	"runtime"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"asaankisaan/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Overview summarizes every (commodity, market) series, or only the series
// of one market when market is non-empty. Rows are sorted by market, then
// commodity.
func (s *Snapshot) Overview(market string) []models.SeriesSummary {
	keys := make([]seriesKey, 0, len(s.series))
	for k := range s.series {
		if market == "" || k.market == market {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return []models.SeriesSummary{}
	}

	// Fan the series out across workers; each writes its own slots.
	numWorkers := min(runtime.NumCPU(), len(keys))
	chunkSize := (len(keys) + numWorkers - 1) / numWorkers
	out := make([]models.SeriesSummary, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(keys))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(st, e int) {
			defer wg.Done()
			for j := st; j < e; j++ {
				out[j] = s.summarize(keys[j])
			}
		}(start, end)
	}
	wg.Wait()

	sort.Slice(out, func(a, b int) bool {
		if out[a].Market != out[b].Market {
			return out[a].Market < out[b].Market
		}
		return out[a].Commodity < out[b].Commodity
	})
	return out
}

func (s *Snapshot) summarize(k seriesKey) models.SeriesSummary {
	ids := s.series[k].byDate
	sum := models.SeriesSummary{
		Market:    k.market,
		Commodity: k.commodity,
		Points:    len(ids),
		Trend:     trendOf(s.records, ids),
	}

	prices := make([]decimal.Decimal, len(ids))
	for i, id := range ids {
		prices[i] = s.records[id].PredictedPrice
	}

	last := s.records[ids[len(ids)-1]]
	sum.LatestDate = last.Date
	sum.Latest = last.PredictedPrice
	sum.Previous = last.PredictedPrice
	if len(ids) > 1 {
		sum.Previous = prices[len(prices)-2]
		if !sum.Previous.IsZero() {
			sum.ChangePercent = sum.Latest.Sub(sum.Previous).Div(sum.Previous).Mul(hundred).Round(2)
		}
	}

	sum.Min = decimal.Min(prices[0], prices[1:]...)
	sum.Max = decimal.Max(prices[0], prices[1:]...)
	sum.Mean = decimal.Avg(prices[0], prices[1:]...).Round(2)
	return sum
}
