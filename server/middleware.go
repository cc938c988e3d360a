package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/askbox/ai/metrics"
)

func newRequestID() string {
	return uuid.NewString()
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("http: request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("http: request", attrs...)
			return nil
		},
	})
}

// metricsMiddleware records one observation per request, labeled by route
// pattern rather than raw path.
func metricsMiddleware(exporter *metrics.PrometheusExporter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			var he *echo.HTTPError
			switch {
			case errors.As(err, &he):
				code = he.Code
			case err != nil && !c.Response().Committed:
				code = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			exporter.ObserveHTTP(c.Request().Method, route, code, time.Since(start))
			return err
		}
	}
}
