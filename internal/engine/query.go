package engine

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"asaankisaan/internal/models"
)

// Fallback when the dataset is empty or its newest date is unreadable.
const (
	defaultWeek = 1
	defaultYear = 2024
)

// Weeks per year used by the weekly window wrap-around.
const weeksPerYear = 52

// CurrentSnapshot returns the newest record of every commodity at market,
// keyed by commodity. "Newest" is the greatest date among the market's rows.
func (s *Snapshot) CurrentSnapshot(market string) map[string]models.PriceRecord {
	out := make(map[string]models.PriceRecord)
	ids := s.byMarket[market]
	if len(ids) == 0 {
		return out
	}

	latest := s.records[ids[0]].Date
	for _, id := range ids[1:] {
		if d := s.records[id].Date; d > latest {
			latest = d
		}
	}
	for _, id := range ids {
		r := s.records[id]
		if r.Date == latest {
			out[r.Commodity] = r
		}
	}
	return out
}

// History returns the series for (commodity, market) in date order.
func (s *Snapshot) History(commodity, market string) []models.PricePoint {
	idx, ok := s.series[seriesKey{commodity: commodity, market: market}]
	if !ok {
		return []models.PricePoint{}
	}
	out := make([]models.PricePoint, 0, len(idx.byDate))
	for _, id := range idx.byDate {
		r := &s.records[id]
		out = append(out, r.Point(r.Date))
	}
	return out
}

// Trend compares the two most recent prices of the series.
func (s *Snapshot) Trend(commodity, market string) models.Trend {
	idx, ok := s.series[seriesKey{commodity: commodity, market: market}]
	if !ok {
		return models.TrendFlat
	}
	return trendOf(s.records, idx.byDate)
}

func trendOf(records []models.PriceRecord, byDate []int32) models.Trend {
	n := len(byDate)
	if n < 2 {
		return models.TrendFlat
	}
	switch records[byDate[n-1]].PredictedPrice.Cmp(records[byDate[n-2]].PredictedPrice) {
	case 1:
		return models.TrendUp
	case -1:
		return models.TrendDown
	default:
		return models.TrendFlat
	}
}

func (s *Snapshot) Commodities() []string { return slices.Clone(s.commodities) }

func (s *Snapshot) Markets() []string { return slices.Clone(s.markets) }

// CurrentWeekAndYear reads the week and year of the newest date across every
// market. It is not scoped to a market; see CurrentWeekAndYearFor.
func (s *Snapshot) CurrentWeekAndYear() (week, year int) {
	if s.latest == -1 {
		return defaultWeek, defaultYear
	}
	return weekAndYear(s.records[s.latest].Date)
}

// CurrentWeekAndYearFor is CurrentWeekAndYear restricted to one market.
func (s *Snapshot) CurrentWeekAndYearFor(market string) (week, year int) {
	ids := s.byMarket[market]
	if len(ids) == 0 {
		return defaultWeek, defaultYear
	}
	latest := s.records[ids[0]].Date
	for _, id := range ids[1:] {
		if d := s.records[id].Date; d > latest {
			latest = d
		}
	}
	return weekAndYear(latest)
}

func weekAndYear(date string) (week, year int) {
	parts := strings.Split(date, "-")
	if len(parts) < 2 {
		return defaultWeek, defaultYear
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		year = defaultYear
	}
	week, err = strconv.Atoi(parts[1])
	if err != nil {
		week = defaultWeek
	}
	return week, year
}

type weekSlot struct {
	label  string
	period models.Period
}

// weekSlots returns the previous, current and next week around (week, year),
// wrapping at the 1..52 boundary.
func weekSlots(week, year int) [3]weekSlot {
	prev := models.Period{Year: year, Week: week - 1}
	if week <= 1 {
		prev = models.Period{Year: year - 1, Week: weeksPerYear}
	}
	next := models.Period{Year: year, Week: week + 1}
	if week >= weeksPerYear {
		next = models.Period{Year: year + 1, Week: 1}
	}
	return [3]weekSlot{
		{label: "Previous Week", period: prev},
		{label: "Current Week", period: models.Period{Year: year, Week: week}},
		{label: "Next Week", period: next},
	}
}

// WeeklyWindow returns up to three points for the weeks around (week, year).
// Weeks without data are left out.
func (s *Snapshot) WeeklyWindow(commodity, market string, week, year int) []models.PricePoint {
	out := make([]models.PricePoint, 0, 3)
	idx, ok := s.series[seriesKey{commodity: commodity, market: market}]
	if !ok {
		return out
	}
	for _, slot := range weekSlots(week, year) {
		for _, id := range idx.byDate {
			r := &s.records[id]
			if r.Period == slot.period {
				out = append(out, r.Point(fmt.Sprintf("%s (Week %d)", slot.label, slot.period.Week)))
				break
			}
		}
	}
	return out
}

// YearSeries returns the series rows whose year column equals year, ordered
// by week number and labelled "Week N".
func (s *Snapshot) YearSeries(commodity, market string, year int) []models.PricePoint {
	idx, ok := s.series[seriesKey{commodity: commodity, market: market}]
	if !ok {
		return []models.PricePoint{}
	}
	rows := make([]*models.PriceRecord, 0, len(idx.fileOrder))
	for _, id := range idx.fileOrder {
		if r := &s.records[id]; r.Year == year {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].WeekNumber < rows[b].WeekNumber })

	out := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Point(WeekLabel(r.WeekNumber)))
	}
	return out
}

func WeekLabel(week int) string {
	return "Week " + strconv.Itoa(week)
}
