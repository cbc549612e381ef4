package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// Timeout puts a deadline on the request context. Handlers and repositories
// observe it through ctx; database and redis calls abort when it expires.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
