package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// LongLived reports requests that hold their connection open on purpose.
func LongLived(c echo.Context) bool {
	return c.IsWebSocket() || strings.HasPrefix(c.Request().URL.Path, "/ws")
}

// RequestTimeout gives every request except LongLived ones a context
// deadline. Handlers run on the calling goroutine and must honour the
// context; a handler that returns after the deadline without having
// written a response is answered with 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || LongLived(c) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
			}
			return err
		}
	}
}
