package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relay-proxy/internal/config"
	"relay-proxy/internal/metrics"
	"relay-proxy/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// The proxy routes accept any method; only the buffered route has a body limit,
// since the streaming route never holds the body in memory.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	secure := middleware.SecurityHeaders()
	e.GET(config.HealthzPath, health.Healthz, secure)
	e.GET(config.StatusPath, health.Status, secure)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	var buffered []echo.MiddlewareFunc
	if cfg.Server.BodyMaxBytes > 0 {
		buffered = append(buffered, echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	}

	relay(e, cfg.Routes.StreamPrefix, proxy.Stream)
	relay(e, cfg.Routes.BufferedPrefix, proxy.Buffered, buffered...)
}

// relay routes every method under prefix to h. Any only covers echo's fixed
// method list; the not-found route on the same path takes every other verb,
// since echo prefers it over a 405.
func relay(e *echo.Echo, prefix string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) {
	e.Any(prefix+"/*", h, mw...)
	e.RouteNotFound(prefix+"/*", h, mw...)
}
