package main

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"asaankisaan/internal/curve"
	"asaankisaan/internal/models"
)

var (
	pMarket    string
	pCommodity string
	pLat       float64
	pLon       float64
	pWeek      int
	pYear      int
	pKind      string
	pScope     string
	pOrder     string
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Resolve coordinates to the nearest reference market",
	RunE:  runNearest,
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the latest price of every commodity at a market",
	RunE:  runCurrent,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the full price history of a commodity at a market",
	RunE:  runHistory,
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show previous, current and next week prices",
	Long: `Show prices for the weeks around --week/--year. Both default to the
newest week in the dataset, or in the chosen market with --scope market.`,
	RunE: runWeekly,
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Show a year of weekly prices reshaped for charting",
	Long: `Show a year of weekly prices. --kind selects the chart curve:
  none    raw predicted prices
  log     log-normalized smoothstep curve with seasonal wave
  zscore  z-score sigmoid with one sine period`,
	RunE: runCurve,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize every commodity series, optionally for one market",
	RunE:  runOverview,
}

func init() {
	rootCmd.AddCommand(nearestCmd, currentCmd, historyCmd, weeklyCmd, curveCmd, overviewCmd)

	for _, c := range []*cobra.Command{nearestCmd, currentCmd, historyCmd, weeklyCmd, curveCmd} {
		c.Flags().Float64Var(&pLat, "lat", 0, "Latitude in degrees")
		c.Flags().Float64Var(&pLon, "lon", 0, "Longitude in degrees")
	}
	for _, c := range []*cobra.Command{currentCmd, historyCmd, weeklyCmd, curveCmd, overviewCmd} {
		c.Flags().StringVar(&pMarket, "market", "", "Market name")
	}
	for _, c := range []*cobra.Command{historyCmd, weeklyCmd, curveCmd} {
		c.Flags().StringVar(&pCommodity, "commodity", "", "Commodity name")
		_ = c.MarkFlagRequired("commodity")
	}
	weeklyCmd.Flags().IntVar(&pWeek, "week", 0, "Week number 1-52")
	weeklyCmd.Flags().IntVar(&pYear, "year", 0, "Year")
	weeklyCmd.Flags().StringVar(&pScope, "scope", "global", "Default week source: global, market")
	historyCmd.Flags().StringVar(&pOrder, "order", "asc", "Date order: asc, desc")
	curveCmd.Flags().IntVar(&pYear, "year", 0, "Year (default: newest year in the dataset)")
	curveCmd.Flags().StringVar(&pKind, "kind", "none", "Curve: none, log, zscore")

	_ = nearestCmd.MarkFlagRequired("lat")
	_ = nearestCmd.MarkFlagRequired("lon")
}

func runNearest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ranked := a.Locator.Rank(pLat, pLon)
	if wantJSON() {
		return outputJSON(os.Stdout, map[string]interface{}{
			"nearest": a.Locator.Nearest(pLat, pLon),
			"ranked":  ranked,
		})
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET\tDISTANCE_KM")
	for _, m := range ranked {
		fmt.Fprintf(w, "%s\t%.1f\n", m.Market.Name, m.DistanceKm)
	}
	return w.Flush()
}

func runCurrent(cmd *cobra.Command, args []string) error {
	a, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	market, err := resolveMarket(cmd, a, pMarket, pLat, pLon)
	if err != nil {
		return err
	}
	current := snap.CurrentSnapshot(market)
	if wantJSON() {
		return outputJSON(os.Stdout, map[string]interface{}{"market": market, "prices": current})
	}

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("📍 %s\n", market)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMODITY\tDATE\tPRICE\tTREND")
	for _, name := range names {
		rec := current[name]
		label := name
		if info, ok := a.Catalog.Commodity(name); ok && info.Icon != "" {
			label = info.Icon + " " + info.DisplayName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", label, rec.Date, a.Catalog.FormatPrice(rec.PredictedPrice), snap.Trend(name, market).Arrow())
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	market, err := resolveMarket(cmd, a, pMarket, pLat, pLon)
	if err != nil {
		return err
	}
	history := snap.History(pCommodity, market)
	switch pOrder {
	case "asc":
	case "desc":
		slices.Reverse(history)
	default:
		return fmt.Errorf("unknown --order %q: want asc or desc", pOrder)
	}
	return printPoints(market, history, a.Catalog.FormatPrice)
}

func runWeekly(cmd *cobra.Command, args []string) error {
	a, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	market, err := resolveMarket(cmd, a, pMarket, pLat, pLon)
	if err != nil {
		return err
	}
	var week, year int
	switch pScope {
	case "global":
		week, year = snap.CurrentWeekAndYear()
	case "market":
		week, year = snap.CurrentWeekAndYearFor(market)
	default:
		return fmt.Errorf("unknown --scope %q: want global or market", pScope)
	}
	if pWeek != 0 {
		week = pWeek
	}
	if pYear != 0 {
		year = pYear
	}
	return printPoints(market, snap.WeeklyWindow(pCommodity, market, week, year), a.Catalog.FormatPrice)
}

func runCurve(cmd *cobra.Command, args []string) error {
	kind, err := curve.ParseKind(pKind)
	if err != nil {
		return err
	}
	a, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	market, err := resolveMarket(cmd, a, pMarket, pLat, pLon)
	if err != nil {
		return err
	}
	year := pYear
	if year == 0 {
		_, year = snap.CurrentWeekAndYear()
	}
	points, err := curve.Apply(kind, snap.YearSeries(pCommodity, market, year))
	if err != nil {
		return err
	}
	format := a.Catalog.FormatPrice
	if kind != curve.KindNone {
		format = nil
	}
	return printPoints(market, points, format)
}

func runOverview(cmd *cobra.Command, args []string) error {
	_, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}
	rows := snap.Overview(pMarket)
	if wantJSON() {
		return outputJSON(os.Stdout, rows)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MARKET\tCOMMODITY\tLATEST\tCHANGE%\tTREND\tMIN\tMAX\tMEAN\tPOINTS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.Market, r.Commodity, r.Latest, r.ChangePercent, r.Trend.Arrow(), r.Min, r.Max, r.Mean, r.Points)
	}
	return w.Flush()
}

// printPoints writes a point series; format renders prices when non-nil,
// otherwise they print with two decimals.
func printPoints(market string, points []models.PricePoint, format func(decimal.Decimal) string) error {
	if wantJSON() {
		return outputJSON(os.Stdout, map[string]interface{}{"market": market, "data": points})
	}
	if len(points) == 0 {
		fmt.Printf("no data for %s\n", market)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tPRICE\tBASE\tINFLATION%")
	for _, p := range points {
		price := p.Price.StringFixed(2)
		if format != nil {
			price = format(p.Price)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Label, price, p.BasePrice, p.InflationRate)
	}
	return w.Flush()
}
