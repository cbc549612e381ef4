package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	analyticssvc "github.com/civicpulse/civicpulse/internal/services/analytics"
	querysvc "github.com/civicpulse/civicpulse/internal/services/query"
	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/models"
)

// RefreshResponse reports the outcome of a manual refresh
type RefreshResponse struct {
	Rows int `json:"rows"`
}

// AnalyticsHandler handles analytics queries and the manual refresh
type AnalyticsHandler struct {
	query     *querysvc.Service
	refresher *analyticssvc.Refresher
	logger    ectologger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(query *querysvc.Service, refresher *analyticssvc.Refresher, logger ectologger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		query:     query,
		refresher: refresher,
		logger:    logger,
	}
}

// RegisterRoutes registers analytics routes
func (h *AnalyticsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/analytics/summary", h.Summary)
	g.GET("/analytics/funnel", h.Funnel)
	g.GET("/analytics/buckets", h.Buckets)
	g.GET("/analytics/categories", h.Categories)
	g.GET("/analytics/temporal", h.Temporal)
	g.GET("/analytics/spatial", h.Spatial)
	g.GET("/analytics/export", h.Export)
	g.POST("/analytics/refresh", h.Refresh)
}

// Summary returns the headline dashboard aggregates
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	stats, err := h.query.Summary(ctx, filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// Funnel returns the submitted/assigned/resolved counts
func (h *AnalyticsHandler) Funnel(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	funnel, err := h.query.Funnel(ctx, filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, funnel)
}

// Buckets returns the operational drill-down buckets
func (h *AnalyticsHandler) Buckets(c echo.Context) error {
	ctx := c.Request().Context()

	buckets, err := h.query.Buckets(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}

// Categories returns the category distribution
func (h *AnalyticsHandler) Categories(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	counts, err := h.query.CategoryDistribution(ctx, filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counts)
}

// Temporal returns the temporal distribution at the requested granularity
func (h *AnalyticsHandler) Temporal(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	granularity := models.Granularity(c.QueryParam("granularity"))

	buckets, err := h.query.TemporalDistribution(ctx, filters, granularity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}

// Spatial returns the spatial grid distribution
func (h *AnalyticsHandler) Spatial(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	cellSize, _ := strconv.ParseFloat(c.QueryParam("cell_size"), 64)

	cells, err := h.query.SpatialDistribution(ctx, filters, cellSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cells)
}

// Export streams the fact rows as an xlsx workbook
func (h *AnalyticsHandler) Export(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := ParseAnalyticsFilters(c)
	if err != nil {
		return err
	}

	buf, err := h.query.ExportXLSX(ctx, filters)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="report_facts.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Refresh rebuilds the fact snapshot on demand
func (h *AnalyticsHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	if err := auth.Require(ctx, auth.CapabilityRefresh); err != nil {
		return err
	}

	rows, err := h.refresher.Refresh(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RefreshResponse{Rows: rows})
}
