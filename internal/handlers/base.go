package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/civicpulse/civicpulse/pkg/models"
)

const dateLayout = "2006-01-02"

// ParseID parses a positive int64 path parameter
func ParseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s", name)
	}
	return id, nil
}

// ParseAnalyticsFilters reads the shared analytics filter query parameters
func ParseAnalyticsFilters(c echo.Context) (*models.AnalyticsFilters, error) {
	filters := &models.AnalyticsFilters{}

	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		}
		filters.StartDate = t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		}
		filters.EndDate = t
	}
	if !filters.StartDate.IsZero() && !filters.EndDate.IsZero() && filters.EndDate.Before(filters.StartDate) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "end_date must not precede start_date")
	}

	if v := c.QueryParam("department_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		filters.DepartmentID = &id
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		filters.CategoryID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		status := models.ReportStatus(v)
		if !status.Valid() {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown status '%s'", v)
		}
		filters.Status = &status
	}

	if v := c.QueryParam("bbox"); v != "" {
		bbox, err := parseBBox(v)
		if err != nil {
			return nil, err
		}
		filters.BBox = bbox
	}

	return filters, nil
}

// parseBBox parses "minLng,minLat,maxLng,maxLat"
func parseBBox(v string) (*models.BoundingBox, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "bbox must be minLng,minLat,maxLng,maxLat")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "bbox must be minLng,minLat,maxLng,maxLat")
		}
		coords[i] = f
	}

	bbox := &models.BoundingBox{MinLng: coords[0], MinLat: coords[1], MaxLng: coords[2], MaxLat: coords[3]}
	if bbox.MinLng > bbox.MaxLng || bbox.MinLat > bbox.MaxLat {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "bbox is inverted")
	}
	if bbox.MinLat < -90 || bbox.MaxLat > 90 || bbox.MinLng < -180 || bbox.MaxLng > 180 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "bbox is out of range")
	}
	return bbox, nil
}
