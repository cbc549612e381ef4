package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/civicpulse/civicpulse/pkg/appctx"
)

const (
	// HeaderUserID is the header key for user ID (trusted test/dev ingress)
	HeaderUserID = "X-User-ID"
	// HeaderRoles is the header key for comma separated roles
	HeaderRoles = "X-Roles"
	// HeaderDepartmentID is the header key for the principal's department
	HeaderDepartmentID = "X-Department-ID"
)

// Context propagates request metadata onto the request context. When OIDC
// authentication is enabled the auth middleware overwrites the principal
// fields with verified claims.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetMethod(ctx, req.Method)
			ctx = appctx.SetRoute(ctx, req.URL.Path)
			ctx = appctx.SetRemoteIP(ctx, c.RealIP())

			if userID := req.Header.Get(HeaderUserID); userID != "" {
				ctx = appctx.SetUserID(ctx, userID)
			}
			if roles := req.Header.Get(HeaderRoles); roles != "" {
				ctx = appctx.SetRoles(ctx, strings.Split(roles, ","))
			}
			if departmentID := req.Header.Get(HeaderDepartmentID); departmentID != "" {
				ctx = appctx.SetDepartmentID(ctx, departmentID)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
