package api

import (
	"errors"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"asaankisaan/internal/catalog"
	"asaankisaan/internal/curve"
	"asaankisaan/internal/engine"
	"asaankisaan/internal/export"
	"asaankisaan/internal/geo"
	"asaankisaan/internal/models"
)

// Weeks between labelled points on the year chart.
const keyWeekStride = 4

type Handler struct {
	store   *engine.Store
	source  engine.Source
	catalog *catalog.Catalog
	locator *geo.Locator
}

func NewHandler(store *engine.Store, src engine.Source, cat *catalog.Catalog, locator *geo.Locator) *Handler {
	return &Handler{store: store, source: src, catalog: cat, locator: locator}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.GetHealth)
	api.GET("/catalog", h.GetCatalog)
	api.GET("/markets", h.GetMarkets)
	api.GET("/markets/nearest", h.GetNearestMarket)
	api.GET("/commodities", h.GetCommodities)
	api.GET("/prices/current", h.GetCurrentPrices)
	api.GET("/prices/history", h.GetHistory)
	api.GET("/prices/trend", h.GetTrend)
	api.GET("/prices/weekly", h.GetWeekly)
	api.GET("/prices/year", h.GetYear)
	api.GET("/overview", h.GetOverview)
	api.GET("/export.arrow", h.GetExport)
	api.POST("/reload", h.Reload)
}

// --- REQUESTS ---

// Either market or lat/lon picks the market; lat/lon resolve to the nearest
// reference market.
type LocationQuery struct {
	Market string  `query:"market"`
	Lat    float64 `query:"lat" validate:"latitude"`
	Lon    float64 `query:"lon" validate:"longitude"`
}

type SeriesQuery struct {
	LocationQuery
	Commodity string `query:"commodity" validate:"required"`
}

type HistoryQuery struct {
	SeriesQuery
	Order string `query:"order" validate:"omitempty,oneof=asc desc"`
}

// Scope "market" defaults week/year from the market's own newest row
// instead of the newest row in the whole dataset.
type WeeklyQuery struct {
	SeriesQuery
	Week  int    `query:"week" validate:"omitempty,min=1,max=52"`
	Year  int    `query:"year" validate:"omitempty,min=1"`
	Scope string `query:"scope" validate:"omitempty,oneof=global market"`
}

type YearQuery struct {
	SeriesQuery
	Year  int    `query:"year" validate:"omitempty,min=1"`
	Curve string `query:"curve" validate:"omitempty,oneof=none log zscore"`
}

func bindQuery(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

func hasLocation(c echo.Context) bool {
	return c.QueryParam("lat") != "" && c.QueryParam("lon") != ""
}

func (h *Handler) resolveMarket(c echo.Context, q LocationQuery) (string, error) {
	if q.Market != "" {
		return q.Market, nil
	}
	if hasLocation(c) {
		return h.locator.Nearest(q.Lat, q.Lon).Market.Name, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "market or lat/lon is required")
}

func (h *Handler) snapshot() (*engine.Snapshot, error) {
	snap := h.store.Snapshot()
	if err := snap.Ready(); err != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "price data is not loaded").SetInternal(err)
	}
	return snap, nil
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// --- HANDLERS ---

func (h *Handler) GetHealth(c echo.Context) error {
	st := h.store.Status()
	code := http.StatusOK
	if st.State != models.Loaded {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, st)
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog)
}

func (h *Handler) GetMarkets(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": snap.Markets()})
}

func (h *Handler) GetCommodities(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": snap.Commodities()})
}

func (h *Handler) GetNearestMarket(c echo.Context) error {
	var q LocationQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	if !hasLocation(c) {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lon are required")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"nearest": h.locator.Nearest(q.Lat, q.Lon),
		"ranked":  h.locator.Rank(q.Lat, q.Lon),
	})
}

type currentPrice struct {
	Commodity    string             `json:"commodity"`
	DisplayName  string             `json:"display_name"`
	Icon         string             `json:"icon,omitempty"`
	Record       models.PriceRecord `json:"record"`
	Trend        models.Trend       `json:"trend"`
	Arrow        string             `json:"arrow"`
	DisplayPrice string             `json:"display_price"`
}

// GetCurrentPrices returns the price cards for one market.
func (h *Handler) GetCurrentPrices(c echo.Context) error {
	var q LocationQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	market, err := h.resolveMarket(c, q)
	if err != nil {
		return err
	}
	snap, err := h.snapshot()
	if err != nil {
		return err
	}

	current := snap.CurrentSnapshot(market)
	prices := make([]currentPrice, 0, len(current))
	for commodity, rec := range current {
		p := currentPrice{
			Commodity:    commodity,
			DisplayName:  commodity,
			Record:       rec,
			Trend:        snap.Trend(commodity, market),
			DisplayPrice: h.catalog.FormatPrice(rec.PredictedPrice),
		}
		p.Arrow = p.Trend.Arrow()
		if info, ok := h.catalog.Commodity(commodity); ok {
			p.DisplayName = info.DisplayName
			p.Icon = info.Icon
		}
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Commodity < prices[j].Commodity })

	return c.JSON(http.StatusOK, map[string]interface{}{
		"market": market,
		"prices": prices,
	})
}

// GetHistory returns the series in date order, or newest first with
// order=desc; limit/offset page the ordered series.
func (h *Handler) GetHistory(c echo.Context) error {
	var q HistoryQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	market, err := h.resolveMarket(c, q.LocationQuery)
	if err != nil {
		return err
	}
	snap, err := h.snapshot()
	if err != nil {
		return err
	}

	history := snap.History(q.Commodity, market)
	order := "asc"
	if q.Order == "desc" {
		order = "desc"
		slices.Reverse(history)
	}
	total := len(history)
	limit, offset := getPaginationParams(c, total)

	page := []models.PricePoint{}
	if offset < total {
		page = history[offset:min(offset+limit, total)]
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"market": market,
		"order":  order,
		"data":   page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetTrend(c echo.Context) error {
	var q SeriesQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	market, err := h.resolveMarket(c, q.LocationQuery)
	if err != nil {
		return err
	}
	snap, err := h.snapshot()
	if err != nil {
		return err
	}

	trend := snap.Trend(q.Commodity, market)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"commodity": q.Commodity,
		"market":    market,
		"trend":     trend,
		"arrow":     trend.Arrow(),
	})
}

// GetWeekly returns the previous/current/next week prices. Week and year
// default to the newest week in the dataset, or in the market with
// scope=market.
func (h *Handler) GetWeekly(c echo.Context) error {
	var q WeeklyQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	market, err := h.resolveMarket(c, q.LocationQuery)
	if err != nil {
		return err
	}
	snap, err := h.snapshot()
	if err != nil {
		return err
	}

	scope := "global"
	week, year := snap.CurrentWeekAndYear()
	if q.Scope == "market" {
		scope = "market"
		week, year = snap.CurrentWeekAndYearFor(market)
	}
	if q.Week != 0 {
		week = q.Week
	}
	if q.Year != 0 {
		year = q.Year
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"market": market,
		"scope":  scope,
		"week":   week,
		"year":   year,
		"data":   snap.WeeklyWindow(q.Commodity, market, week, year),
	})
}

// GetYear returns one year of weekly prices, optionally reshaped by a curve
// pipeline, plus the labelled weeks and price bounds of the raw series.
func (h *Handler) GetYear(c echo.Context) error {
	var q YearQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	kind, err := curve.ParseKind(q.Curve)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	market, err := h.resolveMarket(c, q.LocationQuery)
	if err != nil {
		return err
	}
	snap, err := h.snapshot()
	if err != nil {
		return err
	}

	year := q.Year
	if year == 0 {
		_, year = snap.CurrentWeekAndYear()
	}
	raw := snap.YearSeries(q.Commodity, market, year)
	shaped, err := curve.Apply(kind, raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	resp := map[string]interface{}{
		"market":    market,
		"year":      year,
		"curve":     kind,
		"data":      shaped,
		"key_weeks": curve.KeyPoints(raw, keyWeekStride),
	}
	if lo, hi, ok := curve.Bounds(raw); ok {
		resp["min"] = lo
		resp["max"] = hi
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetOverview(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": snap.Overview(c.QueryParam("market")),
	})
}

// GetExport streams the snapshot as Arrow IPC.
func (h *Handler) GetExport(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, export.ContentType)
	res.Header().Set("X-Snapshot-Id", snap.ID)
	res.WriteHeader(http.StatusOK)
	return export.WriteArrow(res, snap.Records())
}

// Reload fetches the configured source now. A failed reload keeps the
// current snapshot serving.
func (h *Handler) Reload(c echo.Context) error {
	if _, err := h.store.Load(c.Request().Context(), h.source); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, engine.ErrSourceUnreadable) {
			code = http.StatusBadGateway
		}
		return echo.NewHTTPError(code, err.Error()).SetInternal(err)
	}
	return c.JSON(http.StatusOK, h.store.Status())
}
