package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/todoapp/todo-api/internal/pkg/metrics"
)

// Metrics records request counts and latency by route pattern, so ids in the
// path do not explode label cardinality. Errors are rendered before recording
// so the final status is counted, then returned unchanged.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the final status before recording it.
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			metrics.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			// Outer middleware still sees the error; the error handler skips
			// the already committed response.
			return err
		}
	}
}
