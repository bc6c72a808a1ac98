// Package api exposes dashboard sessions over HTTP with echo.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"polizas-dashboard/utils"
)

// NewServer returns an echo instance with the dashboard routes and the
// recover, request logging and CORS middleware.
func NewServer(h *Handler, logger *utils.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	h.RegisterRoutes(e)
	return e
}

func requestLogger(logger *utils.Logger) echo.MiddlewareFunc {
	log := logger.Zap()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("[http] request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("[http] request", fields...)
			return nil
		},
	})
}
