package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout(t *testing.T) {
	newContext := func() echo.Context {
		req := httptest.NewRequest("GET", "/api/v1/analytics/summary", nil)
		return echo.New().NewContext(req, httptest.NewRecorder())
	}

	t.Run("sets a deadline on the request context", func(t *testing.T) {
		c := newContext()

		var deadline time.Time
		var ok bool
		handler := Timeout(30 * time.Second)(func(c echo.Context) error {
			deadline, ok = c.Request().Context().Deadline()
			return nil
		})

		require.NoError(t, handler(c))
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, time.Second)
	})

	t.Run("zero duration leaves the context alone", func(t *testing.T) {
		c := newContext()

		var ok bool
		handler := Timeout(0)(func(c echo.Context) error {
			_, ok = c.Request().Context().Deadline()
			return nil
		})

		require.NoError(t, handler(c))
		assert.False(t, ok)
	})
}
