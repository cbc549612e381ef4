package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/pkg/models"
)

func newTestContext(t *testing.T, query url.Values) echo.Context {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestParseID(t *testing.T) {
	e := echo.New()

	newCtx := func(value string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(value)
		return c
	}

	id, err := ParseID(newCtx("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := ParseID(newCtx(bad), "id")
		require.Error(t, err, bad)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	}
}

func TestParseAnalyticsFilters(t *testing.T) {
	t.Run("parses the full filter set", func(t *testing.T) {
		c := newTestContext(t, url.Values{
			"start_date":    {"2026-01-01"},
			"end_date":      {"2026-03-01"},
			"department_id": {"3"},
			"category_id":   {"5"},
			"status":        {"DONE"},
			"bbox":          {"-74.1,40.6,-73.8,40.9"},
		})

		filters, err := ParseAnalyticsFilters(c)
		require.NoError(t, err)

		assert.Equal(t, 2026, filters.StartDate.Year())
		require.NotNil(t, filters.DepartmentID)
		assert.Equal(t, int64(3), *filters.DepartmentID)
		require.NotNil(t, filters.CategoryID)
		assert.Equal(t, int64(5), *filters.CategoryID)
		require.NotNil(t, filters.Status)
		assert.Equal(t, models.ReportStatusDone, *filters.Status)
		require.NotNil(t, filters.BBox)
		assert.Equal(t, -74.1, filters.BBox.MinLng)
		assert.Equal(t, 40.9, filters.BBox.MaxLat)
	})

	t.Run("empty query is valid", func(t *testing.T) {
		filters, err := ParseAnalyticsFilters(newTestContext(t, url.Values{}))
		require.NoError(t, err)
		assert.True(t, filters.StartDate.IsZero())
		assert.Nil(t, filters.BBox)
	})

	t.Run("rejects an inverted window", func(t *testing.T) {
		c := newTestContext(t, url.Values{
			"start_date": {"2026-03-01"},
			"end_date":   {"2026-01-01"},
		})

		_, err := ParseAnalyticsFilters(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("rejects bad dates and ids", func(t *testing.T) {
		for name, query := range map[string]url.Values{
			"bad start date": {"start_date": {"01/02/2026"}},
			"bad dept id":    {"department_id": {"three"}},
			"bad status":     {"status": {"FIXED"}},
		} {
			_, err := ParseAnalyticsFilters(newTestContext(t, query))
			require.Error(t, err, name)
			assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		}
	})

	t.Run("rejects malformed bounding boxes", func(t *testing.T) {
		for name, bbox := range map[string]string{
			"too few coords": "-74.1,40.6,-73.8",
			"not numbers":    "a,b,c,d",
			"inverted":       "-73.8,40.6,-74.1,40.9",
			"out of range":   "-74.1,40.6,-73.8,95.0",
		} {
			_, err := ParseAnalyticsFilters(newTestContext(t, url.Values{"bbox": {bbox}}))
			require.Error(t, err, name)
			assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		}
	})
}
