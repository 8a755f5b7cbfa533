package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders hardens sandbox responses. Only /api routes carry patient
// data, so only they are marked no-store; health and metrics may be cached
// by intermediaries for revalidation. HSTS is sent when the request arrived
// over TLS, directly or through a proxy.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := c.Response().Header()

			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")

			if strings.HasPrefix(req.URL.Path, "/api/") {
				h.Set(echo.HeaderCacheControl, "no-store")
			} else {
				h.Set(echo.HeaderCacheControl, "no-cache")
			}
			if c.Scheme() == "https" {
				h.Set(echo.HeaderStrictTransportSecurity, "max-age=31536000")
			}
			return next(c)
		}
	}
}
